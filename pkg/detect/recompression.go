package detect

import (
	"github.com/tamperscope/tamperscope/pkg/signal"
)

// Recompression confidence tiers.
const (
	TierAlta  = "ALTA"
	TierMedia = "MEDIA"
	TierBaja  = "BAJA"
)

const (
	histMaxAbs     = 60
	peakProminence = 6.0
	madScale       = 1.4826
)

// ChannelResult is the periodicity test outcome for one AC channel.
type ChannelResult struct {
	Index    int     `json:"index"`
	Periodic bool    `json:"periodic"`
	Peaks    int     `json:"peaks"`
	MainFreq float64 `json:"main_freq"`
}

// RecompressionReport is the output of the double compression detector.
type RecompressionReport struct {
	Signal      signal.Signal   `json:"signal"`
	Applicable  bool            `json:"applicable"`
	Reason      string          `json:"reason,omitempty"`
	Detected    bool            `json:"periodicity_detected"`
	MaxPeaks    int             `json:"max_peaks"`
	Consistency float64         `json:"consistency"`
	Tier        string          `json:"tier"`
	DCVariance  float64         `json:"dc_variance"`
	ACVariance  float64         `json:"ac_variance"`
	Blocks      int             `json:"blocks"`
	IsJPEG      bool            `json:"is_jpeg"`
	Channels    []ChannelResult `json:"channels,omitempty"`
}

// Recompression looks for periodic artifacts in the histograms of block DCT
// coefficients, the trace left by quantizing an image twice. Messaging apps
// and screenshots recompress without editing, so this is supporting evidence
// only.
func (a *Analyzer) Recompression(g *Gray) RecompressionReport {
	if g == nil || g.Width < 8 || g.Height < 8 || len(g.Pix) < g.Width*g.Height {
		return RecompressionReport{
			Signal: signal.Absent(signal.NameRecompression, "pixel matrix empty or smaller than one 8x8 block"),
			Tier:   TierBaja,
		}
	}

	r := RecompressionReport{IsJPEG: g.IsJPEG(), Tier: TierBaja}
	if a.limits.JPEGOnly && !r.IsJPEG {
		r.Reason = "source is not JPEG; test not applicable"
		r.Signal = signal.Absent(signal.NameRecompression, r.Reason)
		return r
	}
	r.Applicable = true

	dc, ac := blockCoefficients(g)
	r.Blocks = len(dc)
	k := a.limits.ACComponents
	if k < 1 {
		k = 1
	}
	if k > len(ac) {
		k = len(ac)
	}

	r.DCVariance = variance(dc)
	all := make([]float64, 0, k*len(dc))
	for i := 0; i < k; i++ {
		all = append(all, ac[i]...)
	}
	r.ACVariance = variance(all)

	periodic := 0
	for i := 0; i < k; i++ {
		res := Periodicity(ac[i])
		res.Index = i
		r.Channels = append(r.Channels, res)
		if res.Peaks > r.MaxPeaks {
			r.MaxPeaks = res.Peaks
		}
		if res.Periodic {
			periodic++
		}
	}

	r.Consistency = float64(periodic) / float64(k)
	r.Detected = r.Consistency >= 0.5 && r.MaxPeaks >= 3
	switch {
	case r.Detected && r.Consistency >= 0.6 && r.MaxPeaks >= 4:
		r.Tier = TierAlta
	case r.Detected:
		r.Tier = TierMedia
	}

	r.Signal = signal.New(signal.NameRecompression, r.Consistency, r.Detected)
	r.Signal.Metrics["max_peaks"] = float64(r.MaxPeaks)
	r.Signal.Metrics["consistency"] = r.Consistency
	r.Signal.Metrics["dc_variance"] = signal.Round(r.DCVariance, 3)
	r.Signal.Metrics["ac_variance"] = signal.Round(r.ACVariance, 3)
	r.Signal.Metrics["blocks"] = float64(r.Blocks)
	return r
}

// Periodicity tests one channel of DCT coefficients for a periodic histogram.
// Bins of the smoothed histogram's magnitude spectrum above a robust
// median/MAD threshold count as peaks; three or more mark the channel periodic.
func Periodicity(vals []float64) ChannelResult {
	hist := smooth(coefficientHistogram(vals, histMaxAbs), smoothKernel)
	return spectrumPeaks(spectrum(hist), len(hist))
}

func spectrumPeaks(spec []float64, histLen int) ChannelResult {
	var res ChannelResult
	if len(spec) == 0 {
		return res
	}

	med := median(spec)
	dev := make([]float64, len(spec))
	for i, v := range spec {
		d := v - med
		if d < 0 {
			d = -d
		}
		dev[i] = d
	}
	mad := median(dev) + 1e-6
	thr := med + peakProminence*madScale*mad

	first := -1
	for i, v := range spec {
		if v > thr {
			res.Peaks++
			if first < 0 {
				first = i
			}
		}
	}
	if first >= 0 {
		res.MainFreq = float64(first+1) / float64(histLen)
	}
	res.Periodic = res.Peaks >= 3
	return res
}
