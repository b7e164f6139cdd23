package parser

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		query    string
		terms    []string
		distinct []string
	}{
		{"Machine learning detection", []string{"machine", "learning", "detection"}, []string{"machine", "learning", "detection"}},
		{"malware, MALWARE!", []string{"malware", "malware"}, []string{"malware"}},
		{"is it ok", []string{}, []string{}},
		{"   ", []string{}, []string{}},
	}
	for _, tt := range tests {
		plan := Parse(tt.query)
		if plan.RawQuery != tt.query {
			t.Errorf("expected raw query %q, got %q", tt.query, plan.RawQuery)
		}
		if !reflect.DeepEqual(plan.Terms, tt.terms) {
			t.Errorf("Parse(%q): expected terms %v, got %v", tt.query, tt.terms, plan.Terms)
		}
		if got := plan.Distinct(); !reflect.DeepEqual(got, tt.distinct) {
			t.Errorf("Parse(%q): expected distinct %v, got %v", tt.query, tt.distinct, got)
		}
		if plan.Empty() != (len(tt.terms) == 0) {
			t.Errorf("Parse(%q): unexpected Empty() = %v", tt.query, plan.Empty())
		}
	}
}
