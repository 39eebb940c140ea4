package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tamperscope/tamperscope/pkg/signal"
)

var (
	// ErrWeightsSum means the component weights do not add up to 1.0.
	ErrWeightsSum = errors.New("component weights must sum to 1.0")
	// ErrThresholdsOrder means tier thresholds are not strictly descending down to 0.
	ErrThresholdsOrder = errors.New("tier thresholds must be strictly descending and end at 0")
	// ErrMultiplierMissing means a tier has no penalty multiplier.
	ErrMultiplierMissing = errors.New("every tier needs a penalty multiplier")
	// ErrMultiplierRange is returned for a tier multiplier outside [0, 1].
	ErrMultiplierRange = errors.New("tier penalty multipliers must be within [0, 1]")
	// ErrPenaltyMethod means the penalty method is unknown.
	ErrPenaltyMethod = errors.New("unknown penalty method")
)

// WeightTolerance is how far the weight sum may drift from 1.0.
const WeightTolerance = 0.001

// Weights assigns each fused signal its share of the score.
type Weights map[signal.Name]float64

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

// Validate checks that weights are non-negative and sum to 1.0.
func (w Weights) Validate() error {
	for name, v := range w {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weight %s is %v: %w", name, v, ErrWeightsSum)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > WeightTolerance {
		return fmt.Errorf("weights sum to %.4f: %w", sum, ErrWeightsSum)
	}
	return nil
}

// names returns the weighted signals in presentation order: the standard
// detectors first, then any others alphabetically.
func (w Weights) names() []signal.Name {
	order := map[signal.Name]int{
		signal.NameLayer:      0,
		signal.NameOverlay:    1,
		signal.NameText:       2,
		signal.NameStructural: 3,
	}
	out := make([]signal.Name, 0, len(w))
	for n := range w {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := order[out[i]]
		oj, jok := order[out[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return out[i] < out[j]
		}
	})
	return out
}

// Threshold is the inclusive lower bound of a tier.
type Threshold struct {
	Tier  Tier    `yaml:"tier" json:"tier"`
	Lower float64 `yaml:"lower" json:"lower"`
}

// Thresholds are evaluated top-down; the first bound the score reaches wins.
type Thresholds []Threshold

// Tier resolves a score against the thresholds.
func (t Thresholds) Tier(score float64) Tier {
	for _, th := range t {
		if score >= th.Lower {
			return th.Tier
		}
	}
	if len(t) == 0 {
		return TierVeryLow
	}
	return t[len(t)-1].Tier
}

// Validate checks that bounds strictly descend and the last one is 0.
func (t Thresholds) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("no thresholds: %w", ErrThresholdsOrder)
	}
	for i := 1; i < len(t); i++ {
		if t[i].Lower >= t[i-1].Lower {
			return fmt.Errorf("%s (%.2f) not below %s (%.2f): %w",
				t[i].Tier, t[i].Lower, t[i-1].Tier, t[i-1].Lower, ErrThresholdsOrder)
		}
	}
	if last := t[len(t)-1]; last.Lower != 0 {
		return fmt.Errorf("lowest tier %s starts at %.2f: %w", last.Tier, last.Lower, ErrThresholdsOrder)
	}
	return nil
}

// Multipliers scale the base weight per tier for the tiered penalty.
type Multipliers map[Tier]float64

// Params is the full fusion configuration.
type Params struct {
	Weights     Weights
	Thresholds  Thresholds
	Multipliers Multipliers
	BaseWeight  int
	Method      PenaltyMethod
}

// Validate checks every part of the configuration.
func (p Params) Validate() error {
	if err := p.Weights.Validate(); err != nil {
		return err
	}
	if err := p.Thresholds.Validate(); err != nil {
		return err
	}
	for _, th := range p.Thresholds {
		if _, ok := p.Multipliers[th.Tier]; !ok {
			return fmt.Errorf("tier %s: %w", th.Tier, ErrMultiplierMissing)
		}
	}
	for tier, m := range p.Multipliers {
		if m < 0 || m > 1 || math.IsNaN(m) {
			return fmt.Errorf("tier %s multiplier %.2f: %w", tier, m, ErrMultiplierRange)
		}
	}
	switch p.Method {
	case MethodProportional, MethodTiered, MethodMaxOfBoth:
	default:
		return fmt.Errorf("%q: %w", p.Method, ErrPenaltyMethod)
	}
	return nil
}
