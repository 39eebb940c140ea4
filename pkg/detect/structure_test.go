package detect_test

import (
	"math"
	"testing"

	"github.com/tamperscope/tamperscope/pkg/detect"
)

func stackedBlocks(n int) []detect.Rect {
	blocks := make([]detect.Rect, n)
	for i := range blocks {
		off := float64(i)
		blocks[i] = detect.Rect{X0: 100 + off, Y0: 100 + off, X1: 200 + off, Y1: 120 + off}
	}
	return blocks
}

func TestStructureOverlaps(t *testing.T) {
	geom := &detect.Geometry{Pages: []detect.Page{
		{Number: 1, Drawings: 2, TextBlocks: stackedBlocks(3)},
		{Number: 2, Drawings: 2, TextBlocks: stackedBlocks(3)},
	}}
	r := detect.New(detect.DefaultLimits()).Structure(geom)

	if r.TotalOverlaps != 6 {
		t.Errorf("expected 6 overlapping pairs, got %d", r.TotalOverlaps)
	}
	if r.TotalObjects != 10 {
		t.Errorf("expected 10 objects, got %d", r.TotalObjects)
	}
	if !r.Signal.Presence {
		t.Error("expected structural presence with more than 5 overlaps")
	}
	if math.Abs(r.Score-0.65) > 1e-9 {
		t.Errorf("expected score 0.65, got %f", r.Score)
	}
	if len(r.Indicators) != 1 {
		t.Errorf("expected 1 indicator, got %v", r.Indicators)
	}
}

func TestStructureDensePages(t *testing.T) {
	geom := &detect.Geometry{Pages: []detect.Page{{Number: 1, Drawings: 80, Images: 5}}}
	r := detect.New(detect.DefaultLimits()).Structure(geom)

	if !r.Signal.Presence {
		t.Error("expected presence above 50 objects per page")
	}
	if r.ObjectsPerPage != 85 {
		t.Errorf("expected 85 objects per page, got %f", r.ObjectsPerPage)
	}
}

func TestStructureBlockCap(t *testing.T) {
	limits := detect.DefaultLimits()
	limits.MaxBlocksPerPage = 4
	geom := &detect.Geometry{Pages: []detect.Page{{Number: 1, TextBlocks: stackedBlocks(50)}}}
	r := detect.New(limits).Structure(geom)

	if r.TotalOverlaps != 6 {
		t.Errorf("expected overlaps among the first 4 blocks only, got %d", r.TotalOverlaps)
	}
	if r.TotalObjects != 50 {
		t.Errorf("expected every block counted as an object, got %d", r.TotalObjects)
	}
}

func TestStructureClean(t *testing.T) {
	geom := &detect.Geometry{Pages: []detect.Page{{
		Number: 1,
		TextBlocks: []detect.Rect{
			{X0: 0, Y0: 0, X1: 100, Y1: 10},
			{X0: 0, Y0: 10, X1: 100, Y1: 20},
		},
	}}}
	r := detect.New(detect.DefaultLimits()).Structure(geom)
	if r.TotalOverlaps != 0 {
		t.Errorf("expected touching blocks not to overlap, got %d", r.TotalOverlaps)
	}
	if r.Signal.Presence {
		t.Error("expected no structural presence")
	}
}

func TestStructureUnavailable(t *testing.T) {
	r := detect.New(detect.DefaultLimits()).Structure(&detect.Geometry{})
	if r.Signal.Presence || r.Signal.Note == "" {
		t.Errorf("expected absent signal with note, got %+v", r.Signal)
	}
}
