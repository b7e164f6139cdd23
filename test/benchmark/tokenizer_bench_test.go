package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/lexsearch/internal/indexer/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "Adversarial examples fool malware classifiers.",
	"medium": `Intrusion detection systems inspect network flows for signatures of known
        attacks. Anomaly-based detectors instead learn a model of normal traffic and
        flag deviations! Hybrid designs combine both approaches? They trade false
        positives against coverage of zero-day exploits.`,
	"long": strings.Repeat(`Side-channel attacks recover secret keys by observing timing,
        power draw, or cache state. Constant-time code and cache partitioning are
        common mitigations. Researchers continue to find new channels in speculative
        execution, branch predictors and shared TLBs. `, 20),
}

func BenchmarkNormalize(b *testing.B) {
	tokens := strings.Fields(sampleTexts["medium"])
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, tok := range tokens {
			_ = tokenizer.Normalize(tok)
		}
	}
}

func BenchmarkTerms(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tokenizer.Terms(text)
			}
		})
	}
}

func BenchmarkTermsParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = tokenizer.Terms(text)
		}
	})
}

func BenchmarkSplitSentences(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	base := sampleTexts["long"]
	for _, size := range sizes {
		text := base[:min(size, len(base))]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tokenizer.SplitSentences(text)
			}
		})
	}
}
