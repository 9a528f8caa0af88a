package strategy

import (
	"testing"

	"TrendAdvisor/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		entry []bool
		exit  []bool
		want  model.Classification
	}{
		{"all entries met", []bool{true, true}, nil, model.StrongMatch},
		{"some entries met", []bool{true, false}, []bool{false}, model.PartialMatch},
		{"no entries met", []bool{false, false}, nil, model.NoMatch},
		{"no entry rules", nil, nil, model.NoMatch},
		{"no entry rules with false exit", []bool{}, []bool{false}, model.NoMatch},
		{"exit overrides strong", []bool{true, true}, []bool{false, true}, model.NoMatch},
		{"exit overrides partial", []bool{true, false}, []bool{true}, model.NoMatch},
		{"single entry met", []bool{true}, []bool{false, false}, model.StrongMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.entry, tt.exit); got != tt.want {
				t.Errorf("Classify(%v, %v) = %s, want %s", tt.entry, tt.exit, got, tt.want)
			}
		})
	}
}

func TestClassify_ExitPrecedenceExhaustive(t *testing.T) {
	// every entry tuple of length 0..3 against every exit tuple containing a true
	for n := 0; n <= 3; n++ {
		for mask := 0; mask < 1<<n; mask++ {
			entry := make([]bool, n)
			for i := range entry {
				entry[i] = mask&(1<<i) != 0
			}
			for _, exit := range [][]bool{{true}, {false, true}, {true, true, false}} {
				if got := Classify(entry, exit); got != model.NoMatch {
					t.Fatalf("entry=%v exit=%v: got %s, want NO MATCH", entry, exit, got)
				}
			}
		}
	}
}

func TestBadges_CoverEveryClassification(t *testing.T) {
	for _, c := range []model.Classification{model.StrongMatch, model.PartialMatch, model.NoMatch} {
		b := BadgeFor(c)
		if b.Label != c.String() {
			t.Errorf("badge label for %s = %q", c, b.Label)
		}
	}
	if BadgeFor(model.Classification(42)).Style != "red" {
		t.Error("unknown classification should fall back to NO MATCH badge")
	}
	if BandBadge(model.BandClose).Style != "emerald" || BandBadge(model.BandMedium).Style != "yellow" {
		t.Error("unexpected band styles")
	}
}
