package detect

import "context"

// Rect is an axis-aligned bounding box in page coordinates.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Intersects reports whether two boxes overlap with positive area.
func (r Rect) Intersects(o Rect) bool {
	return r.X0 < o.X1 && r.X1 > o.X0 && r.Y0 < o.Y1 && r.Y1 > o.Y0
}

// Page is the parsed layout of a single document page.
type Page struct {
	Number     int        `json:"number"` // 1-based
	Drawings   int        `json:"drawings"`
	Images     int        `json:"images"`
	TextBlocks []Rect     `json:"text_blocks"`
	Content    string     `json:"content,omitempty"` // decoded content stream bytes
	Fonts      []string   `json:"fonts,omitempty"`   // font name per text span
	Alignment  *Alignment `json:"alignment,omitempty"`
}

// ObjectCount is the number of drawable objects on the page.
func (p Page) ObjectCount() int {
	return p.Drawings + p.Images + len(p.TextBlocks)
}

// Alignment summarizes how regular the text lines on a page are.
type Alignment struct {
	Score         float64 `json:"score"`          // 1.0 = every line on a shared baseline grid
	RotationRatio float64 `json:"rotation_ratio"` // fraction of rotated spans
}

// ImageInfo describes one embedded raster image.
type ImageInfo struct {
	Page    int      `json:"page"`
	DPI     float64  `json:"dpi"`
	Filters []string `json:"filters,omitempty"`
}

// Geometry is the per-document output of a layout parser.
// A Geometry with zero pages means the parser could not supply data.
type Geometry struct {
	Catalog string      `json:"catalog,omitempty"` // document catalog dictionary text
	Pages   []Page      `json:"pages"`
	Images  []ImageInfo `json:"images,omitempty"`
}

// Available reports whether the geometry carries any pages.
func (g *Geometry) Available() bool {
	return g != nil && len(g.Pages) > 0
}

// Fonts returns the font names of every text span across all pages.
func (g *Geometry) Fonts() []string {
	if g == nil {
		return nil
	}
	var out []string
	for _, p := range g.Pages {
		out = append(out, p.Fonts...)
	}
	return out
}

// GeometryProvider supplies page geometry for a document.
type GeometryProvider interface {
	PageGeometry(ctx context.Context) (*Geometry, error)
}

// StaticGeometry adapts an in-memory Geometry to GeometryProvider.
type StaticGeometry struct {
	G *Geometry
}

// PageGeometry returns the wrapped geometry.
func (s StaticGeometry) PageGeometry(ctx context.Context) (*Geometry, error) {
	return s.G, nil
}
