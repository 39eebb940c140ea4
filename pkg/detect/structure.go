package detect

import (
	"fmt"

	"github.com/tamperscope/tamperscope/pkg/signal"
)

// PageStructure is the object census of one page.
type PageStructure struct {
	Page        int `json:"page"`
	Drawings    int `json:"drawings"`
	Images      int `json:"images"`
	TextBlocks  int `json:"text_blocks"`
	ObjectCount int `json:"object_count"`
	Overlaps    int `json:"overlapping_blocks"`
}

// StructureReport is the output of the page structure detector.
type StructureReport struct {
	Signal         signal.Signal   `json:"signal"`
	Score          float64         `json:"score"`
	TotalObjects   int             `json:"total_objects"`
	ObjectsPerPage float64         `json:"objects_per_page"`
	TotalOverlaps  int             `json:"overlapping_blocks_total"`
	Indicators     []string        `json:"indicators,omitempty"`
	Pages          []PageStructure `json:"pages,omitempty"`
}

// Structure flags pages that are unusually dense or carry overlapping text
// blocks.
func (a *Analyzer) Structure(geom *Geometry) StructureReport {
	if !geom.Available() {
		return StructureReport{Signal: signal.Absent(signal.NameStructural, "page geometry unavailable")}
	}

	var r StructureReport
	for i, p := range geom.Pages {
		ps := PageStructure{
			Page:        p.Number,
			Drawings:    p.Drawings,
			Images:      p.Images,
			TextBlocks:  len(p.TextBlocks),
			ObjectCount: p.ObjectCount(),
			Overlaps:    countOverlaps(p.TextBlocks, a.limits.MaxBlocksPerPage),
		}
		if ps.Page == 0 {
			ps.Page = i + 1
		}
		r.TotalObjects += ps.ObjectCount
		r.TotalOverlaps += ps.Overlaps
		r.Pages = append(r.Pages, ps)
	}

	r.ObjectsPerPage = float64(r.TotalObjects) / float64(len(geom.Pages))
	if r.ObjectsPerPage > 50 {
		r.Indicators = append(r.Indicators, fmt.Sprintf("excess objects per page: %.1f", r.ObjectsPerPage))
	}
	if r.TotalOverlaps > 5 {
		r.Indicators = append(r.Indicators, fmt.Sprintf("multiple overlapping blocks: %d", r.TotalOverlaps))
	}
	r.Score = minf(1, r.ObjectsPerPage/100+float64(r.TotalOverlaps)/10)

	r.Signal = signal.New(signal.NameStructural, r.Score, len(r.Indicators) > 0)
	r.Signal.Metrics["total_objects"] = float64(r.TotalObjects)
	r.Signal.Metrics["objects_per_page"] = signal.Round(r.ObjectsPerPage, 2)
	r.Signal.Metrics["overlapping_blocks"] = float64(r.TotalOverlaps)
	return r
}

// countOverlaps counts intersecting pairs among the first limit blocks.
func countOverlaps(blocks []Rect, limit int) int {
	if limit > 0 && len(blocks) > limit {
		blocks = blocks[:limit]
	}
	n := 0
	for i := range blocks {
		for j := i + 1; j < len(blocks); j++ {
			if blocks[i].Intersects(blocks[j]) {
				n++
			}
		}
	}
	return n
}
