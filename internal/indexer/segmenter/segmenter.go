// Package segmenter splits a concatenated corpus into topic-bounded
// passages. Documents are separated by a line of fifty '=' characters; each
// document is cut at sentence boundaries into passages of roughly
// MaxPassageChars characters.
package segmenter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/tokenizer"
)

const (
	// DocumentSeparator marks the boundary between two documents.
	DocumentSeparator = "=================================================="
	// MinDocumentChars is the trimmed length below which a document is noise.
	MinDocumentChars = 100
	// MinPassageChars is the exclusive lower bound on an emitted passage's
	// trimmed length.
	MinPassageChars = 100
	// MaxPassageChars is the soft cap on the passage buffer.
	MaxPassageChars = 800
	// UnknownTitle is used when no heading candidate qualifies.
	UnknownTitle = "Unknown Paper"

	titleScanLines   = 5
	minTitleChars    = 10
	maxTitleChars    = 100
	progressInterval = 20
)

// Segment splits corpus into passages with ids assigned from 0 in document
// order, then within-document order.
func Segment(corpus string) []index.Passage {
	logger := slog.Default().With("component", "segmenter")
	documents := strings.Split(corpus, DocumentSeparator)

	passages := make([]index.Passage, 0)
	for i, doc := range documents {
		if tokenizer.RuneLen(strings.TrimSpace(doc)) < MinDocumentChars {
			continue
		}
		title := ExtractTitle(doc)
		sourceID := fmt.Sprintf("paper_%d", i)
		for _, text := range splitDocument(doc) {
			passages = append(passages, index.Passage{
				ID:       len(passages),
				Text:     text,
				Title:    title,
				SourceID: sourceID,
			})
		}
		if (i+1)%progressInterval == 0 {
			logger.Debug("documents segmented", "documents", i+1, "passages", len(passages))
		}
	}
	logger.Info("segmentation complete",
		"documents", len(documents),
		"passages", len(passages),
	)
	return passages
}

// ExtractTitle returns the first of the document's first five non-empty
// lines that is longer than ten characters and is not a URL.
func ExtractTitle(doc string) string {
	scanned := 0
	for _, line := range strings.Split(strings.TrimSpace(doc), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if scanned == titleScanLines {
			break
		}
		scanned++
		if tokenizer.RuneLen(line) > minTitleChars && !strings.HasPrefix(line, "http") {
			return truncateTitle(line)
		}
	}
	return UnknownTitle
}

func truncateTitle(line string) string {
	runes := []rune(line)
	if len(runes) <= maxTitleChars {
		return line
	}
	return string(runes[:maxTitleChars]) + "..."
}

// splitDocument accumulates sentences into a buffer and cuts a passage
// whenever the next sentence would push the buffer to MaxPassageChars.
// Fragments too short to stand alone are dropped; a single sentence longer
// than the cap becomes its own passage.
func splitDocument(doc string) []string {
	var out []string
	var buf strings.Builder

	emit := func() {
		text := strings.TrimSpace(buf.String())
		if tokenizer.RuneLen(text) > MinPassageChars {
			out = append(out, text)
		}
		buf.Reset()
	}

	bufLen := 0
	for _, sentence := range tokenizer.SplitSentences(doc) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		n := tokenizer.RuneLen(sentence)
		if bufLen+n >= MaxPassageChars {
			emit()
			bufLen = 0
		}
		buf.WriteString(sentence)
		buf.WriteString(". ")
		bufLen += n + 2
	}
	emit()
	return out
}
