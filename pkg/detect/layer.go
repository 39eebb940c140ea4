package detect

import (
	"regexp"
	"strings"

	"github.com/tamperscope/tamperscope/pkg/signal"
)

// layerPatterns are structural tokens of optional content groups (hideable layers).
var layerPatterns = compileAll(
	`/OCGs`,
	`/OCProperties`,
	`/OC\s`,
	`/ON\s+\[`,
	`/OFF\s+\[`,
	`/Order\s+\[`,
	`/RBGroups`,
	`/Locked\s+\[`,
	`/AS\s+<<`,
	`/Category\s+\[`,
)

var (
	catalogLayerRe = regexp.MustCompile(`/OC(?:Properties|Gs|MD)\b`)
	pageLayerRe    = regexp.MustCompile(`(?i)/OC(?:MD)?\b`)
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// PatternHit records how often one catalog pattern matched.
type PatternHit struct {
	Pattern string   `json:"pattern"`
	Count   int      `json:"count"`
	Samples []string `json:"samples,omitempty"` // up to 3 snippets of 64 bytes
}

// PageHits is the number of layer tokens found in one page's content stream.
type PageHits struct {
	Page int `json:"page"`
	Hits int `json:"hits"`
}

// CatalogFlags summarizes layer markers in the document catalog.
type CatalogFlags struct {
	HasOCProperties bool `json:"has_oc_properties"`
	Hits            int  `json:"hits"`
}

// LayerReport is the output of the layer detector.
type LayerReport struct {
	Signal        signal.Signal `json:"signal"`
	Hits          int           `json:"hits"`
	Patterns      []PatternHit  `json:"patterns,omitempty"`
	SampledBytes  int           `json:"sampled_bytes"`
	Density       float64       `json:"density_per_mb"`
	Coverage      float64       `json:"coverage"`
	TotalPages    int           `json:"total_pages"`
	PagesWithHits []int         `json:"pages_with_hits,omitempty"`
	PerPage       []PageHits    `json:"per_page,omitempty"`
	Catalog       CatalogFlags  `json:"catalog"`
}

// Layers scans a document for optional content group markers. Geometry is
// optional: without it the result is based on the byte sample alone.
func (a *Analyzer) Layers(data []byte, geom *Geometry) LayerReport {
	if len(data) == 0 {
		return LayerReport{Signal: signal.Absent(signal.NameLayer, "empty document buffer")}
	}

	sample := Sample(data, a.limits.SampleBytes)
	r := LayerReport{SampledBytes: len(sample)}

	for _, re := range layerPatterns {
		spans := findUnique(re, sample)
		if len(spans) == 0 {
			continue
		}
		r.Hits += len(spans)
		hit := PatternHit{Pattern: re.String(), Count: len(spans)}
		for i := 0; i < len(spans) && i < 3; i++ {
			hit.Samples = append(hit.Samples, snippet(sample, spans[i].start, 64))
		}
		r.Patterns = append(r.Patterns, hit)
	}

	if geom.Available() {
		r.TotalPages = len(geom.Pages)
		r.Catalog.Hits = len(catalogLayerRe.FindAllStringIndex(geom.Catalog, -1))
		r.Catalog.HasOCProperties = strings.Contains(geom.Catalog, "/OCProperties")
		r.Hits += r.Catalog.Hits

		for i, p := range geom.Pages {
			n := len(findUnique(pageLayerRe, []byte(p.Content)))
			page := p.Number
			if page == 0 {
				page = i + 1
			}
			r.PerPage = append(r.PerPage, PageHits{Page: page, Hits: n})
			if n > 0 {
				r.PagesWithHits = append(r.PagesWithHits, page)
			}
		}
	}

	mb := float64(len(sample)) / 1_000_000
	if mb < 1 {
		mb = 1
	}
	r.Density = float64(r.Hits) / mb
	if r.TotalPages > 0 {
		r.Coverage = float64(len(r.PagesWithHits)) / float64(r.TotalPages)
	}

	conf := LayerConfidence(r.Hits, r.Coverage, r.Density)
	r.Signal = signal.New(signal.NameLayer, conf, r.Hits > 0)
	r.Signal.Metrics["hits"] = float64(r.Hits)
	r.Signal.Metrics["coverage"] = r.Coverage
	r.Signal.Metrics["density_per_mb"] = signal.Round(r.Density, 3)
	r.Signal.Metrics["total_pages"] = float64(r.TotalPages)
	if r.TotalPages == 0 {
		r.Signal.Note = "page geometry unavailable; byte scan only"
	}
	return r
}

// LayerConfidence maps hit count, page coverage and hit density to a
// confidence on a smooth logistic curve capped at 0.95.
func LayerConfidence(hits int, coverage, density float64) float64 {
	if hits < 0 {
		hits = 0
	}
	coverage = signal.Clamp(coverage, 0, 1)
	densNorm := signal.Clamp(density/20, 0, 1)
	capped := hits
	if capped > 12 {
		capped = 12
	}

	raw := 0.7*float64(capped)/12 + 0.2*coverage + 0.1*densNorm
	base := 0.0
	if hits > 0 {
		base = 0.05
	}
	return signal.Clamp(base+0.85*signal.Sigmoid(8*(raw-0.35)), 0, 0.95)
}
