package scoring

import (
	"math"

	"github.com/tamperscope/tamperscope/pkg/signal"
)

// Engine fuses detector signals under a fixed configuration.
type Engine struct {
	params Params
}

// NewEngine creates a fusion engine. Callers validate params beforehand;
// missing weights, thresholds, multipliers and method fall back to the
// defaults. A zero base weight is kept and disables the fusion penalty.
func NewEngine(p Params) *Engine {
	d := Defaults()
	if len(p.Weights) == 0 {
		p.Weights = d.Weights
	}
	if len(p.Thresholds) == 0 {
		p.Thresholds = d.Thresholds
	}
	if len(p.Multipliers) == 0 {
		p.Multipliers = d.Multipliers
	}
	if p.Method == "" {
		p.Method = d.Method
	}
	return &Engine{params: p}
}

// Params returns the engine configuration.
func (e *Engine) Params() Params {
	return e.params
}

// Fuse combines signals into one score. Only present signals contribute and
// the weighted sum is not renormalized, so missing evidence lowers the score.
// Signals without a configured weight are ignored.
func (e *Engine) Fuse(signals ...signal.Signal) *FusionResult {
	byName := make(map[signal.Name]signal.Signal, len(signals))
	for _, s := range signals {
		byName[s.Name] = s
	}

	result := &FusionResult{Weights: e.params.Weights}
	score := 0.0
	for _, name := range e.params.Weights.names() {
		w := e.params.Weights[name]
		s, ok := byName[name]
		c := Contribution{Signal: name, Weight: w}
		if ok {
			c.Confidence = signal.Clamp(s.Confidence, 0, 1)
			c.Presence = s.Presence
		}
		if c.Presence {
			c.Contribution = w * c.Confidence
			score += c.Contribution
		}
		c.Contribution = signal.Round(c.Contribution, 3)
		result.Breakdown = append(result.Breakdown, c)
	}

	score = signal.Clamp(score, 0, 1)
	result.Score = score
	result.Tier = e.params.Thresholds.Tier(score)
	result.Confidence = math.Min(1, score+0.1)
	result.ProbabilityPercentage = signal.Round(score*100, 1)
	result.Penalty = e.Penalty(score)
	return result
}

// Penalty converts a fused score into points under the engine configuration.
func (e *Engine) Penalty(score float64) PenaltyResult {
	return ComputePenalty(score, e.params.Thresholds.Tier(score), e.params.BaseWeight, e.params.Multipliers, e.params.Method)
}

// PenaltyFromPercentage is Penalty for callers holding a 0-100 percentage.
func (e *Engine) PenaltyFromPercentage(pct float64) PenaltyResult {
	return e.Penalty(signal.Clamp(pct/100, 0, 1))
}

// ComputePenalty computes both the proportional and tiered penalties and
// picks one according to method. Rounding is half to even.
func ComputePenalty(score float64, tier Tier, base int, multipliers Multipliers, method PenaltyMethod) PenaltyResult {
	mult, ok := multipliers[tier]
	if !ok {
		mult = DefaultMultipliers()[TierVeryLow]
	}
	r := PenaltyResult{
		Method:       method,
		Proportional: int(math.RoundToEven(score * float64(base))),
		Tiered:       int(math.RoundToEven(float64(base) * mult)),
		BaseWeight:   base,
		Tier:         tier,
	}
	switch method {
	case MethodProportional:
		r.Points = r.Proportional
	case MethodTiered:
		r.Points = r.Tiered
	default:
		r.Method = MethodMaxOfBoth
		r.Points = max(r.Proportional, r.Tiered)
	}
	return r
}

// ComputePenaltyFromPercentage applies the default thresholds, multipliers
// and max-of-both rule to a 0-100 probability percentage.
func ComputePenaltyFromPercentage(pct float64, base int) PenaltyResult {
	score := signal.Clamp(pct/100, 0, 1)
	return ComputePenalty(score, TierFromScore(score), base, DefaultMultipliers(), MethodMaxOfBoth)
}
