package risk

import (
	"fmt"
	"strings"

	"github.com/tamperscope/tamperscope/pkg/detect"
)

// multipleLayers charges the fused layer/overlay/text/structure score.
// Its base weight is the fusion base weight.
type multipleLayers struct{}

func (multipleLayers) Key() string     { return "multiple_layers" }
func (multipleLayers) Label() string   { return "Multiple layers (fused)" }
func (multipleLayers) Tier() CheckTier { return TierPrioritized }

func (multipleLayers) Evaluate(in *Inputs, base int) (int, string, error) {
	f := in.Fusion
	if f == nil {
		return 0, "", fmt.Errorf("fusion result missing")
	}
	p := f.Penalty
	detail := fmt.Sprintf("fused score %.3f (%s), %s penalty: proportional %d, tiered %d",
		f.Score, f.Tier, p.Method, p.Proportional, p.Tiered)
	return p.Points, detail, nil
}

// suspiciousStructure charges a crowded or overlapping page layout that the
// layer and text detectors did not already explain.
type suspiciousStructure struct{}

func (suspiciousStructure) Key() string     { return "suspicious_structure" }
func (suspiciousStructure) Label() string   { return "Suspicious page structure" }
func (suspiciousStructure) Tier() CheckTier { return TierAdditional }

func (suspiciousStructure) Evaluate(in *Inputs, base int) (int, string, error) {
	s := in.Signals
	if !s.Structure.Signal.Presence {
		return 0, "structure normal", nil
	}
	if s.Layers.Signal.Presence || s.Text.Signal.Presence {
		return 0, "explained by layer or text findings", nil
	}
	detail := "anomalous structure"
	if len(s.Structure.Indicators) > 0 {
		detail = strings.Join(s.Structure.Indicators, "; ")
	}
	return base, detail, nil
}

// recompression charges image documents whose DCT statistics show a second
// JPEG quantization pass.
type recompression struct{}

func (recompression) Key() string     { return "recompression" }
func (recompression) Label() string   { return "Double JPEG compression" }
func (recompression) Tier() CheckTier { return TierAdditional }

func (recompression) Evaluate(in *Inputs, base int) (int, string, error) {
	if in.Doc.Kind != KindImage {
		return 0, "not an image document", nil
	}
	r := in.Signals.Recompression
	if !r.Applicable {
		reason := r.Reason
		if reason == "" {
			reason = r.Signal.Note
		}
		return 0, reason, nil
	}
	detail := fmt.Sprintf("tier %s, %d peaks, consistency %.2f", r.Tier, r.MaxPeaks, r.Consistency)
	switch r.Tier {
	case detect.TierAlta:
		return base, detail, nil
	case detect.TierMedia:
		return scaled(base, 0.6), detail, nil
	}
	return 0, detail, nil
}
