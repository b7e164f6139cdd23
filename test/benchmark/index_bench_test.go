// Package benchmark measures segmentation, index construction, snapshot
// encoding and the query pipeline over a synthetic corpus.
package benchmark

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/scorer"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/segmenter"
	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/snapshot"
)

var vocabulary = strings.Fields(`attack botnet cipher defense exploit firewall
	graph honeypot intrusion kernel lattice malware network obfuscation packet
	phishing quantum ransomware sandbox signature spoofing threat timing trojan
	vulnerability worm anomaly classifier detection encryption privacy protocol
	authentication authorization credential entropy forensic heuristic`)

// syntheticCorpus returns docs documents of roughly sentences sentences
// each. The generator is seeded so runs are comparable.
func syntheticCorpus(docs, sentences int) string {
	rng := rand.New(rand.NewSource(42))
	parts := make([]string, docs)
	for d := range parts {
		var b strings.Builder
		fmt.Fprintf(&b, "Synthetic Paper Number %d On Security\n", d)
		for s := 0; s < sentences; s++ {
			n := 8 + rng.Intn(12)
			for w := 0; w < n; w++ {
				if w > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(vocabulary[rng.Intn(len(vocabulary))])
			}
			b.WriteString(". ")
		}
		parts[d] = b.String()
	}
	return strings.Join(parts, "\n"+segmenter.DocumentSeparator+"\n")
}

func BenchmarkSegment(b *testing.B) {
	for _, docs := range []int{10, 100} {
		corpus := syntheticCorpus(docs, 40)
		b.Run(fmt.Sprintf("docs_%d", docs), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(corpus)))
			for i := 0; i < b.N; i++ {
				_ = segmenter.Segment(corpus)
			}
		})
	}
}

func BenchmarkIndexBuild(b *testing.B) {
	passages := segmenter.Segment(syntheticCorpus(100, 40))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = index.Build(passages)
	}
}

func BenchmarkTFIDF(b *testing.B) {
	passages := segmenter.Segment(syntheticCorpus(100, 40))
	ix := index.Build(passages)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = scorer.Compute(passages, ix)
	}
}

func BenchmarkEngineBuild(b *testing.B) {
	corpus := syntheticCorpus(100, 40)
	b.ReportAllocs()
	b.SetBytes(int64(len(corpus)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := indexer.Build(corpus); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSnapshotEncode(b *testing.B) {
	e, err := indexer.Build(syntheticCorpus(50, 40))
	if err != nil {
		b.Fatal(err)
	}
	snap := e.Snapshot()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := snapshot.Encode(snap); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSnapshotDecode(b *testing.B) {
	e, err := indexer.Build(syntheticCorpus(50, 40))
	if err != nil {
		b.Fatal(err)
	}
	data, err := snapshot.Encode(e.Snapshot())
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := snapshot.Decode(data); err != nil {
			b.Fatal(err)
		}
	}
}
