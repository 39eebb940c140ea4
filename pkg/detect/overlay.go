package detect

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tamperscope/tamperscope/pkg/signal"
)

// overlayPatterns mark transparency groups, form XObjects and compositing state.
var overlayPatterns = compileAll(
	`/Type\s*/XObject`,
	`/Subtype\s*/Form`,
	`/Group\s*<<`,
	`/S\s*/Transparency`,
	`/BM\s*/\w+`,
	`/CA\s+[\d.]+`,
	`/ca\s+[\d.]+`,
)

// suspiciousOperators are painting operators common in pasted patches.
var suspiciousOperators = compileAll(
	`q\s+[\d.\-\s]+cm`,
	`Do\s`,
	`gs\s`,
	`/G\d+\s+gs`,
)

var (
	streamRe      = regexp.MustCompile(`(?s)stream\s*[\r\n]+(.*?)\s*endstream`)
	strokeAlphaRe = regexp.MustCompile(`/CA\s+([\d.]+)`)
	fillAlphaRe   = regexp.MustCompile(`/ca\s+([\d.]+)`)
	blendModeRe   = regexp.MustCompile(`/BM\s*/(\w+)`)
)

// Overlay risk levels.
const (
	RiskHigh   = "HIGH"
	RiskMedium = "MEDIUM"
	RiskLow    = "LOW"
)

// OperatorHit counts one suspicious operator pattern.
type OperatorHit struct {
	Operator string `json:"operator"`
	Count    int    `json:"count"`
}

// AlphaRange summarizes extracted opacity values.
type AlphaRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// StreamSummary describes a single content stream chunk.
type StreamSummary struct {
	Index      int      `json:"index"`
	AlphaCount int      `json:"alpha_count"`
	BlendModes []string `json:"blend_modes,omitempty"`
	Length     int      `json:"length_bytes"`
}

// OverlayReport is the output of the overlay detector.
type OverlayReport struct {
	Signal              signal.Signal   `json:"signal"`
	Hits                int             `json:"hits"`
	TransparencyCount   int             `json:"transparency_count"` // alphas below 1.0
	Alphas              []float64       `json:"alphas,omitempty"`   // first 50
	AlphaRange          AlphaRange      `json:"alpha_range"`
	BlendModes          []string        `json:"blend_modes,omitempty"`
	BlendRatio          float64         `json:"blend_non_normal_ratio"`
	SuspiciousOperators int             `json:"suspicious_operators"`
	Operators           []OperatorHit   `json:"operators,omitempty"`
	Streams             int             `json:"streams"`
	PerStream           []StreamSummary `json:"per_stream,omitempty"` // first 20
	OverlayScore        float64         `json:"overlay_score"`
	Probability         float64         `json:"probability"`
	RiskLevel           string          `json:"risk_level"`
}

// Overlay scans a document for transparency and compositing markers.
func (a *Analyzer) Overlay(data []byte) OverlayReport {
	if len(data) == 0 {
		return OverlayReport{
			Signal:    signal.Absent(signal.NameOverlay, "empty document buffer"),
			RiskLevel: RiskLow,
		}
	}

	sample := Sample(data, a.limits.SampleBytes)
	streams := splitStreams(sample)

	var r OverlayReport
	r.Streams = len(streams)

	for _, re := range overlayPatterns {
		r.Hits += len(findUnique(re, sample))
	}

	alphas := alphaValues(sample)
	below := 0
	for _, v := range alphas {
		if v < 1.0 {
			below++
		}
	}
	r.TransparencyCount = below
	r.AlphaRange = alphaRange(alphas)
	if len(alphas) > 50 {
		r.Alphas = alphas[:50]
	} else {
		r.Alphas = alphas
	}

	r.BlendModes = blendModes(sample)
	r.BlendRatio = nonNormalRatio(r.BlendModes)

	for _, re := range suspiciousOperators {
		n := len(findUnique(re, sample))
		r.SuspiciousOperators += n
		if n > 0 {
			r.Operators = append(r.Operators, OperatorHit{Operator: re.String(), Count: n})
		}
	}

	for i, s := range streams {
		if i >= 20 {
			break
		}
		modes := blendModes(s)
		if len(modes) > 5 {
			modes = modes[:5]
		}
		r.PerStream = append(r.PerStream, StreamSummary{
			Index:      i + 1,
			AlphaCount: len(alphaValues(s)),
			BlendModes: modes,
			Length:     len(s),
		})
	}

	overlaysNorm := minf(1, float64(r.Hits)/20)
	alphaAny := 0.0
	if below > 0 {
		alphaAny = 1
	}
	alphaDensity := 0.0
	if len(alphas) > 0 {
		alphaDensity = minf(1, float64(below)/float64(len(alphas)))
	}
	opsNorm := minf(1, float64(r.SuspiciousOperators)/50)
	streamsNorm := minf(1, float64(len(streams))/12)

	x := -2.0 +
		2.0*overlaysNorm +
		1.3*alphaAny +
		0.8*alphaDensity +
		0.9*r.BlendRatio +
		0.7*opsNorm +
		0.3*streamsNorm
	r.Probability = signal.Sigmoid(x)
	r.RiskLevel = overlayRiskLevel(r.Probability)

	strong := alphaAny
	if r.BlendRatio > 0 {
		strong++
	}
	if overlaysNorm > 0.4 {
		strong++
	}
	consistency := 0.5*alphaDensity + 0.5*minf(1, 1.5*overlaysNorm)
	conf := signal.Clamp(0.40+0.18*strong+0.25*consistency, 0.35, 0.95)

	if r.Hits > 3 {
		r.OverlayScore = overlaysNorm
	}

	present := r.Hits > 3 || below > 0 || r.BlendRatio >= 0.2
	r.Signal = signal.New(signal.NameOverlay, conf, present)
	r.Signal.Metrics["hits"] = float64(r.Hits)
	r.Signal.Metrics["overlays_norm"] = overlaysNorm
	r.Signal.Metrics["alpha_density"] = signal.Round(alphaDensity, 3)
	r.Signal.Metrics["blend_ratio"] = signal.Round(r.BlendRatio, 3)
	r.Signal.Metrics["ops_norm"] = opsNorm
	r.Signal.Metrics["streams_norm"] = signal.Round(streamsNorm, 3)
	r.Signal.Metrics["probability"] = signal.Round(r.Probability, 4)
	return r
}

func splitStreams(sample []byte) [][]byte {
	var chunks [][]byte
	for _, m := range streamRe.FindAllSubmatch(sample, -1) {
		chunks = append(chunks, m[1])
	}
	if len(chunks) == 0 {
		return [][]byte{sample}
	}
	return chunks
}

func alphaValues(data []byte) []float64 {
	var vals []float64
	for _, re := range []*regexp.Regexp{strokeAlphaRe, fillAlphaRe} {
		for _, m := range re.FindAllSubmatch(data, -1) {
			v, err := strconv.ParseFloat(string(m[1]), 64)
			if err != nil {
				continue
			}
			vals = append(vals, v)
		}
	}
	return vals
}

func blendModes(data []byte) []string {
	matches := blendModeRe.FindAllSubmatch(data, 20)
	modes := make([]string, 0, len(matches))
	for _, m := range matches {
		modes = append(modes, string(m[1]))
	}
	return modes
}

func nonNormalRatio(modes []string) float64 {
	if len(modes) == 0 {
		return 0
	}
	n := 0
	for _, m := range modes {
		if strings.ToLower(m) != "normal" {
			n++
		}
	}
	return float64(n) / float64(len(modes))
}

func alphaRange(vals []float64) AlphaRange {
	if len(vals) == 0 {
		return AlphaRange{}
	}
	r := AlphaRange{Min: vals[0], Max: vals[0]}
	sum := 0.0
	for _, v := range vals {
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
		sum += v
	}
	r.Avg = sum / float64(len(vals))
	return r
}

func overlayRiskLevel(p float64) string {
	switch {
	case p >= 0.75:
		return RiskHigh
	case p >= 0.5:
		return RiskMedium
	default:
		return RiskLow
	}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
