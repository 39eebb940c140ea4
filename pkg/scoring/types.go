// Package scoring implements the tamperscope signal fusion engine.
// It combines detector signals into a bounded, explainable score and turns
// that score into penalty points.
package scoring

import "github.com/tamperscope/tamperscope/pkg/signal"

// FusionResult is the complete output of fusing a set of signals.
// Immutable once computed.
type FusionResult struct {
	Score                 float64        `json:"score"` // 0.0-1.0
	ProbabilityPercentage float64        `json:"probability_percentage"`
	Tier                  Tier           `json:"tier"`
	Confidence            float64        `json:"confidence"` // min(1, score+0.1)
	Penalty               PenaltyResult  `json:"penalty"`
	Breakdown             []Contribution `json:"breakdown"`
	Weights               Weights        `json:"weights"`
}

// Contribution is one signal's share of the fused score.
type Contribution struct {
	Signal       signal.Name `json:"signal"`
	Weight       float64     `json:"weight"`
	Confidence   float64     `json:"confidence"`
	Presence     bool        `json:"presence"`
	Contribution float64     `json:"contribution"` // weight*confidence when present, else 0
}

// Tier is a coarse risk band for a fused score.
type Tier string

const (
	TierVeryHigh Tier = "VERY_HIGH"
	TierHigh     Tier = "HIGH"
	TierMedium   Tier = "MEDIUM"
	TierLow      Tier = "LOW"
	TierVeryLow  Tier = "VERY_LOW"
)

// PenaltyMethod selects how a fused score becomes penalty points.
type PenaltyMethod string

const (
	MethodProportional PenaltyMethod = "proportional"
	MethodTiered       PenaltyMethod = "tiered"
	MethodMaxOfBoth    PenaltyMethod = "max_of_both"
)

// PenaltyResult carries the chosen penalty and both candidate computations.
type PenaltyResult struct {
	Points       int           `json:"points"`
	Method       PenaltyMethod `json:"method"`
	Proportional int           `json:"proportional"` // round(score*base)
	Tiered       int           `json:"tiered"`       // round(base*multiplier[tier])
	BaseWeight   int           `json:"base_weight"`
	Tier         Tier          `json:"tier"`
}

// TierFromScore maps a fused score to a tier using the default thresholds.
func TierFromScore(score float64) Tier {
	return DefaultThresholds().Tier(score)
}
