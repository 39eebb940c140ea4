package detect_test

import (
	"math"
	"strings"
	"testing"

	"github.com/tamperscope/tamperscope/pkg/detect"
)

func TestSimilarityRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abcd", "abcd", 1},
		{"abcd", "bcde", 0.75},
		{"abc", "xyz", 0},
		{"abc", "", 0},
		{"Invoice total: 1,250.00", "Invoice total: 1,750.00", 44.0 / 46},
		{"Customer: ACME Corp", "Date: 2024-03-01", 8.0 / 35},
		{"añejo", "añejos", 10.0 / 11},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			got := detect.SimilarityRatio(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
			if rev := detect.SimilarityRatio(tt.b, tt.a); tt.a == "" && rev != got {
				t.Errorf("expected symmetric result for empty input, got %f and %f", got, rev)
			}
		})
	}
}

func TestSimilarityRatioPopularRunes(t *testing.T) {
	// Runes occurring in more than 1% of a 200+ rune sequence cannot seed
	// a match, and these blocks never line up at either end.
	a := strings.Repeat("x", 100) + strings.Repeat("ab", 60)
	b := strings.Repeat("ab", 60) + strings.Repeat("x", 100)
	if got := detect.SimilarityRatio(a, b); got != 0 {
		t.Errorf("expected 0 for popular-only runes, got %f", got)
	}
}
