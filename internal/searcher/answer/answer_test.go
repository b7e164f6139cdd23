package answer

import (
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/searcher/ranker"
)

func passages(texts ...string) []ranker.ScoredPassage {
	out := make([]ranker.ScoredPassage, len(texts))
	for i, text := range texts {
		out[i] = ranker.ScoredPassage{Passage: index.Passage{ID: i, Text: text}, Score: float64(len(texts) - i)}
	}
	return out
}

func TestSynthesizeNothingFound(t *testing.T) {
	if got := Synthesize("anything", nil); got != NothingFound {
		t.Errorf("expected %q, got %q", NothingFound, got)
	}
}

func TestSynthesizeNoDirectAnswer(t *testing.T) {
	got := Synthesize("quantum lattice", passages("Firewalls filter packets at the network edge."))
	want := `The retrieved passages mention "quantum lattice" but contain no direct answer.`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSynthesizeFormat(t *testing.T) {
	got := Synthesize("machine learning detection",
		passages("Machine learning models detect anomalies in network traffic. Short one."))
	want := "Based on the retrieved passages:\n\n• Machine learning models detect anomalies in network traffic.\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSelectOrdersByOverlapStable(t *testing.T) {
	text := "Intrusion detection is an old research topic. " +
		"Anomaly based intrusion detection flags deviations from a baseline. " +
		"Signature matching remains the most deployed detection approach. " +
		"Anomaly intrusion detection baselines drift over time."
	got := Select("anomaly intrusion detection", passages(text))
	if len(got) != 3 {
		t.Fatalf("expected 3 sentences, got %d", len(got))
	}
	if !strings.HasPrefix(got[0].Text, "Anomaly based") || got[0].Overlap != 3 {
		t.Errorf("expected first sentence with overlap 3, got %+v", got[0])
	}
	if !strings.HasPrefix(got[1].Text, "Anomaly intrusion") || got[1].Overlap != 3 {
		t.Errorf("expected second sentence with overlap 3, got %+v", got[1])
	}
	if !strings.HasPrefix(got[2].Text, "Intrusion detection is") {
		t.Errorf("expected ties kept in text order, got %+v", got[2])
	}
}

func TestSelectUsesTopThreePassages(t *testing.T) {
	ps := passages(
		"First passage about ransomware encryption.",
		"Second passage about ransomware payments.",
		"Third passage about ransomware negotiation.",
		"Fourth passage about ransomware recovery.",
	)
	for _, s := range Select("ransomware", ps) {
		if strings.Contains(s.Text, "Fourth") {
			t.Errorf("sentence from the fourth passage selected: %q", s.Text)
		}
	}
}

func TestSelectSkipsShortSentences(t *testing.T) {
	got := Select("worm", passages("A worm spreads. The worm exploited an unpatched service."))
	if len(got) != 1 || got[0].Text != "The worm exploited an unpatched service" {
		t.Errorf("unexpected selection %+v", got)
	}
}
