package scoring_test

import (
	"errors"
	"math"
	"testing"

	"github.com/tamperscope/tamperscope/pkg/scoring"
	"github.com/tamperscope/tamperscope/pkg/signal"
)

func present(name signal.Name, conf float64) signal.Signal {
	return signal.New(name, conf, true)
}

func TestFuseLayerOnly(t *testing.T) {
	raw := 0.7*5.0/12 + 0.2*0.3 - 0.35
	layerConf := math.Min(0.95, 0.05+0.85/(1+math.Exp(-8*raw)))

	engine := scoring.NewEngine(scoring.Defaults())
	result := engine.Fuse(
		present(signal.NameLayer, layerConf),
		signal.New(signal.NameOverlay, 0.4, false),
		signal.New(signal.NameText, 0, false),
		signal.New(signal.NameStructural, 0, false),
	)

	wantScore := 0.35 * layerConf
	if math.Abs(result.Score-wantScore) > 1e-12 {
		t.Errorf("expected score %f, got %f", wantScore, result.Score)
	}
	tier := scoring.TierFromScore(wantScore)
	if result.Tier != tier {
		t.Errorf("expected tier %s, got %s", tier, result.Tier)
	}
	wantPenalty := max(int(math.RoundToEven(wantScore*15)), int(math.RoundToEven(15*scoring.DefaultMultipliers()[tier])))
	if result.Penalty.Points != wantPenalty {
		t.Errorf("expected penalty %d, got %d", wantPenalty, result.Penalty.Points)
	}
	if result.Confidence != math.Min(1, wantScore+0.1) {
		t.Errorf("expected reported confidence %f, got %f", wantScore+0.1, result.Confidence)
	}
	if len(result.Breakdown) != 4 {
		t.Fatalf("expected 4 breakdown entries, got %d", len(result.Breakdown))
	}
	if result.Breakdown[0].Signal != signal.NameLayer {
		t.Errorf("expected layer first in breakdown, got %s", result.Breakdown[0].Signal)
	}
	if result.Breakdown[1].Contribution != 0 {
		t.Errorf("expected absent overlay to contribute 0, got %f", result.Breakdown[1].Contribution)
	}
}

func TestFuseBounds(t *testing.T) {
	engine := scoring.NewEngine(scoring.Defaults())

	empty := engine.Fuse()
	if empty.Score != 0 || empty.Tier != scoring.TierVeryLow {
		t.Errorf("expected zero VERY_LOW for no signals, got %f %s", empty.Score, empty.Tier)
	}
	if empty.Penalty.Points != 3 {
		t.Errorf("expected VERY_LOW floor penalty 3, got %d", empty.Penalty.Points)
	}

	full := engine.Fuse(
		present(signal.NameLayer, 1),
		present(signal.NameOverlay, 1),
		present(signal.NameText, 1),
		present(signal.NameStructural, 1),
		present(signal.NameRecompression, 1),
	)
	if full.Score < 0.999 || full.Score > 1 {
		t.Errorf("expected score near 1, got %f", full.Score)
	}
	if full.Tier != scoring.TierVeryHigh {
		t.Errorf("expected VERY_HIGH, got %s", full.Tier)
	}
	if full.Penalty.Points != 15 {
		t.Errorf("expected full penalty 15, got %d", full.Penalty.Points)
	}
	if full.Confidence != 1 {
		t.Errorf("expected reported confidence capped at 1, got %f", full.Confidence)
	}
}

func TestFuseOutOfRangeConfidence(t *testing.T) {
	engine := scoring.NewEngine(scoring.Defaults())
	s := signal.Signal{Name: signal.NameText, Confidence: 7, Presence: true}
	result := engine.Fuse(s)
	if math.Abs(result.Score-0.25) > 1e-12 {
		t.Errorf("expected confidence clamped before weighting, got score %f", result.Score)
	}
}

func TestPenaltyMonotone(t *testing.T) {
	engine := scoring.NewEngine(scoring.Defaults())
	prev := -1
	for i := 0; i <= 100; i++ {
		p := engine.Penalty(float64(i) / 100)
		if p.Points < prev {
			t.Errorf("penalty decreased at score %.2f: %d < %d", float64(i)/100, p.Points, prev)
		}
		if p.Points > p.BaseWeight {
			t.Errorf("penalty %d exceeds base %d", p.Points, p.BaseWeight)
		}
		prev = p.Points
	}
}

func TestComputePenaltyMethods(t *testing.T) {
	m := scoring.DefaultMultipliers()
	tests := []struct {
		name   string
		score  float64
		method scoring.PenaltyMethod
		want   int
	}{
		{"proportional", 0.5, scoring.MethodProportional, 8},
		{"tiered", 0.5, scoring.MethodTiered, 9},
		{"max of both", 0.5, scoring.MethodMaxOfBoth, 9},
		{"max of both high tier", 0.79, scoring.MethodMaxOfBoth, 12},
		{"unknown falls back to max", 0.1, "", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoring.ComputePenalty(tt.score, scoring.TierFromScore(tt.score), 15, m, tt.method)
			if got.Points != tt.want {
				t.Errorf("expected %d points, got %d (%+v)", tt.want, got.Points, got)
			}
		})
	}
}

func TestComputePenaltyFromPercentage(t *testing.T) {
	tests := []struct {
		pct  float64
		want int
	}{
		{0, 3},
		{25, 6},
		{45, 9},
		{65, 12},
		{85, 15},
		{100, 15},
		{250, 15},
	}
	for _, tt := range tests {
		got := scoring.ComputePenaltyFromPercentage(tt.pct, 15)
		if got.Points != tt.want {
			t.Errorf("pct %.0f: expected %d, got %d", tt.pct, tt.want, got.Points)
		}
		if got.Method != scoring.MethodMaxOfBoth {
			t.Errorf("pct %.0f: expected max_of_both, got %s", tt.pct, got.Method)
		}
	}
}

func TestTierFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  scoring.Tier
	}{
		{0, scoring.TierVeryLow},
		{0.19, scoring.TierVeryLow},
		{0.2, scoring.TierLow},
		{0.4, scoring.TierMedium},
		{0.6, scoring.TierHigh},
		{0.8, scoring.TierVeryHigh},
		{1, scoring.TierVeryHigh},
	}
	for _, tt := range tests {
		if got := scoring.TierFromScore(tt.score); got != tt.want {
			t.Errorf("score %.2f: expected %s, got %s", tt.score, tt.want, got)
		}
	}
}

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights scoring.Weights
		wantErr bool
	}{
		{"defaults", scoring.DefaultWeights(), false},
		{"within tolerance", scoring.Weights{signal.NameLayer: 0.5, signal.NameText: 0.5009}, false},
		{"too high", scoring.Weights{signal.NameLayer: 0.6, signal.NameText: 0.402}, true},
		{"too low", scoring.Weights{signal.NameLayer: 0.35, signal.NameText: 0.25}, true},
		{"negative", scoring.Weights{signal.NameLayer: 1.5, signal.NameText: -0.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, scoring.ErrWeightsSum) {
				t.Errorf("expected ErrWeightsSum, got %v", err)
			}
		})
	}
}

func TestParamsValidate(t *testing.T) {
	p := scoring.Defaults()
	if err := p.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	bad := scoring.Defaults()
	bad.Thresholds = scoring.Thresholds{{Tier: scoring.TierHigh, Lower: 0.5}, {Tier: scoring.TierLow, Lower: 0.6}}
	if err := bad.Validate(); !errors.Is(err, scoring.ErrThresholdsOrder) {
		t.Errorf("expected ErrThresholdsOrder, got %v", err)
	}

	bad = scoring.Defaults()
	bad.Thresholds = scoring.Thresholds{{Tier: scoring.TierHigh, Lower: 0.5}, {Tier: scoring.TierLow, Lower: 0.1}}
	if err := bad.Validate(); !errors.Is(err, scoring.ErrThresholdsOrder) {
		t.Errorf("expected ErrThresholdsOrder for missing zero floor, got %v", err)
	}

	bad = scoring.Defaults()
	delete(bad.Multipliers, scoring.TierMedium)
	if err := bad.Validate(); !errors.Is(err, scoring.ErrMultiplierMissing) {
		t.Errorf("expected ErrMultiplierMissing, got %v", err)
	}

	bad = scoring.Defaults()
	bad.Method = "average"
	if err := bad.Validate(); !errors.Is(err, scoring.ErrPenaltyMethod) {
		t.Errorf("expected ErrPenaltyMethod, got %v", err)
	}
}

func TestParamsValidateMultiplierRange(t *testing.T) {
	tests := []struct {
		name    string
		mult    float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"one", 1, false},
		{"inside", 0.6, false},
		{"above one", 3, true},
		{"negative", -0.2, true},
		{"nan", math.NaN(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scoring.Defaults()
			for tier := range p.Multipliers {
				p.Multipliers[tier] = tt.mult
			}
			err := p.Validate()
			if tt.wantErr && !errors.Is(err, scoring.ErrMultiplierRange) {
				t.Errorf("expected ErrMultiplierRange, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestPenaltyNeverExceedsBase(t *testing.T) {
	tests := []struct {
		name string
		base int
	}{
		{"zero base disables penalty", 0},
		{"default base", 15},
		{"full base", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scoring.Defaults()
			p.BaseWeight = tt.base
			if err := p.Validate(); err != nil {
				t.Fatalf("expected params to validate, got %v", err)
			}
			engine := scoring.NewEngine(p)
			if got := engine.Params().BaseWeight; got != tt.base {
				t.Errorf("expected base weight %d, got %d", tt.base, got)
			}
			for i := 0; i <= 100; i++ {
				pen := engine.Penalty(float64(i) / 100)
				if pen.Points > tt.base {
					t.Errorf("expected at most %d points at score %.2f, got %d", tt.base, float64(i)/100, pen.Points)
				}
			}
		})
	}
}
