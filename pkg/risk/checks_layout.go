package risk

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// fontConsistency flags pages set in many different fonts, a sign of text
// pasted in from another source.
type fontConsistency struct{}

func (fontConsistency) Key() string     { return "font_consistency" }
func (fontConsistency) Label() string   { return "Font consistency" }
func (fontConsistency) Tier() CheckTier { return TierSecondary }

func (fontConsistency) Evaluate(in *Inputs, base int) (int, string, error) {
	if !in.IsPDF() {
		return 0, notApplicableImage, nil
	}
	if !in.Geometry.Available() {
		return 0, "page geometry unavailable", nil
	}
	fonts := in.Geometry.Fonts()
	if len(fonts) == 0 {
		return 0, "no text spans", nil
	}

	counts := make(map[string]int)
	dominant := 0
	for _, f := range fonts {
		counts[f]++
		dominant = max(dominant, counts[f])
	}
	ratio := float64(dominant) / float64(len(fonts))
	detail := fmt.Sprintf("%d unique fonts, dominant ratio %.3f", len(counts), ratio)

	switch {
	case len(counts) > 2 || ratio < 0.4:
		return base, detail, nil
	case ratio < 0.6:
		return scaled(base, 0.6), detail, nil
	}
	return 0, detail, nil
}

// dpiUniformity flags low-resolution or inconsistently scaled images.
type dpiUniformity struct{}

func (dpiUniformity) Key() string     { return "dpi_uniformity" }
func (dpiUniformity) Label() string   { return "Image resolution uniformity" }
func (dpiUniformity) Tier() CheckTier { return TierSecondary }

func (dpiUniformity) Evaluate(in *Inputs, base int) (int, string, error) {
	if !in.IsPDF() {
		return 0, notApplicableImage, nil
	}
	var dpis []float64
	if in.Geometry != nil {
		for _, img := range in.Geometry.Images {
			if img.DPI > 0 {
				dpis = append(dpis, img.DPI)
			}
		}
	}
	if len(dpis) == 0 {
		return 0, "no placed images", nil
	}

	lo, sum := dpis[0], 0.0
	for _, d := range dpis {
		lo = math.Min(lo, d)
		sum += d
	}
	mean := sum / float64(len(dpis))
	ss := 0.0
	for _, d := range dpis {
		ss += (d - mean) * (d - mean)
	}
	stdev := math.Sqrt(ss / float64(len(dpis)))
	detail := fmt.Sprintf("%d images, min %.1f dpi, mean %.1f, stdev %.1f", len(dpis), lo, mean, stdev)

	switch {
	case lo < 90:
		return base, detail, nil
	case mean > 0 && stdev/mean > 0.35:
		return scaled(base, 0.6), detail, nil
	}
	return 0, detail, nil
}

var filterSplitRe = regexp.MustCompile(`[,\s]+`)

// standardCompression flags image filters outside the standard PDF set.
type standardCompression struct{}

func (standardCompression) Key() string     { return "standard_compression" }
func (standardCompression) Label() string   { return "Standard compression methods" }
func (standardCompression) Tier() CheckTier { return TierSecondary }

func (standardCompression) Evaluate(in *Inputs, base int) (int, string, error) {
	if !in.IsPDF() {
		return 0, notApplicableImage, nil
	}
	if in.Geometry == nil {
		return 0, "no image filters", nil
	}
	standard := make(map[string]bool, len(in.Config.Checks.StandardFilters))
	for _, f := range in.Config.Checks.StandardFilters {
		standard[strings.TrimPrefix(f, "/")] = true
	}

	unknown := make(map[string]bool)
	for _, img := range in.Geometry.Images {
		for _, f := range img.Filters {
			for _, tok := range filterSplitRe.Split(f, -1) {
				tok = strings.TrimPrefix(tok, "/")
				if tok != "" && !standard[tok] {
					unknown[tok] = true
				}
			}
		}
	}
	if len(unknown) == 0 {
		return 0, "all filters standard", nil
	}
	names := make([]string, 0, len(unknown))
	for n := range unknown {
		names = append(names, n)
	}
	sort.Strings(names)
	return base, "non-standard filters: " + strings.Join(names, ", "), nil
}

// textAlignment flags ragged or rotated text lines.
type textAlignment struct{}

func (textAlignment) Key() string     { return "text_alignment" }
func (textAlignment) Label() string   { return "Text element alignment" }
func (textAlignment) Tier() CheckTier { return TierSecondary }

func (textAlignment) Evaluate(in *Inputs, base int) (int, string, error) {
	if !in.IsPDF() {
		return 0, notApplicableImage, nil
	}
	align, rot := 1.0, 0.0
	if in.Geometry != nil {
		var aSum, rSum float64
		n := 0
		for _, p := range in.Geometry.Pages {
			if p.Alignment == nil {
				continue
			}
			aSum += p.Alignment.Score
			rSum += p.Alignment.RotationRatio
			n++
		}
		if n > 0 {
			align, rot = aSum/float64(n), rSum/float64(n)
		}
	}
	detail := fmt.Sprintf("mean alignment %.3f, rotation ratio %.3f", align, rot)

	switch {
	case align < 0.7 || rot > 0.2:
		return base, detail, nil
	case align < 0.85 || rot > 0.1:
		return scaled(base, 0.6), detail, nil
	}
	return 0, detail, nil
}
