package tokenizer

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello,", "hello"},
		{"(TF-IDF)", "tfidf"},
		{"  Anomalies.  ", "anomalies"},
		{"über-Größe", "übergröße"},
		{"snake_case", "snakecase"},
		{"2024!", "2024"},
		{"...", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestIndexable(t *testing.T) {
	if Indexable("ai") {
		t.Error("two-letter term must not be indexable")
	}
	if !Indexable("iot") {
		t.Error("three-letter term must be indexable")
	}
	if Indexable("") {
		t.Error("empty term must not be indexable")
	}
	if !Indexable("日本語") {
		t.Error("length is measured in runes, not bytes")
	}
}

func TestTermsFiltersShortAndPunctuation(t *testing.T) {
	got := Terms("Machine learning, in AI: detects -- anomalies!")
	want := []string{"machine", "learning", "detects", "anomalies"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFieldsKeepsRawCount(t *testing.T) {
	got := Fields("a -- Network")
	want := []string{"a", "", "network"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTermSet(t *testing.T) {
	set := TermSet("Data data DATA flow")
	if len(set) != 2 {
		t.Errorf("expected 2 distinct terms, got %d", len(set))
	}
	if _, ok := set["data"]; !ok {
		t.Error("expected data in set")
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("First one. Second?! Third... end")
	want := []string{"First one", " Second", " Third", " end"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
	if got := SplitSentences("no terminal punctuation"); len(got) != 1 {
		t.Errorf("expected a single piece, got %d", len(got))
	}
}
