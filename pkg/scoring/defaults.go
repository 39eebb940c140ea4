package scoring

import "github.com/tamperscope/tamperscope/pkg/signal"

// DefaultBaseWeight is the penalty ceiling of the fused layer check.
const DefaultBaseWeight = 15

// DefaultWeights returns the standard component weights.
func DefaultWeights() Weights {
	return Weights{
		signal.NameLayer:      0.35,
		signal.NameOverlay:    0.25,
		signal.NameText:       0.25,
		signal.NameStructural: 0.15,
	}
}

// DefaultThresholds returns the standard tier bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		{Tier: TierVeryHigh, Lower: 0.8},
		{Tier: TierHigh, Lower: 0.6},
		{Tier: TierMedium, Lower: 0.4},
		{Tier: TierLow, Lower: 0.2},
		{Tier: TierVeryLow, Lower: 0.0},
	}
}

// DefaultMultipliers returns the standard tiered penalty multipliers.
func DefaultMultipliers() Multipliers {
	return Multipliers{
		TierVeryHigh: 1.0,
		TierHigh:     0.8,
		TierMedium:   0.6,
		TierLow:      0.4,
		TierVeryLow:  0.2,
	}
}

// Defaults returns the default fusion configuration.
func Defaults() Params {
	return Params{
		Weights:     DefaultWeights(),
		Thresholds:  DefaultThresholds(),
		Multipliers: DefaultMultipliers(),
		BaseWeight:  DefaultBaseWeight,
		Method:      MethodMaxOfBoth,
	}
}
