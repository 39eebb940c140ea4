// Package detect implements the tamper signal detectors: layer and overlay
// byte scans, duplicate-text detection, page-structure anomalies and the
// DCT-based double-compression test. Every detector is a pure function of its
// input and the Limits it was built with.
package detect

// Limits bounds the work a detector performs on adversary-controlled input.
type Limits struct {
	SampleBytes      int  // bytes scanned from the start of a document
	MaxTextLines     int  // lines kept for pairwise text comparison
	MaxLineRunes     int  // runes kept per line before comparison
	MaxBlocksPerPage int  // text blocks kept per page for overlap counting
	ACComponents     int  // AC channels used by the recompression test
	JPEGOnly         bool // recompression test only applies to JPEG sources
}

// DefaultLimits returns the standard detector limits.
func DefaultLimits() Limits {
	return Limits{
		SampleBytes:      8_000_000,
		MaxTextLines:     500,
		MaxLineRunes:     1000,
		MaxBlocksPerPage: 200,
		ACComponents:     5,
	}
}

// Analyzer runs detectors under a fixed set of limits. It holds no mutable
// state and is safe for concurrent use.
type Analyzer struct {
	limits Limits
}

// New creates an Analyzer. Non-positive limits fall back to the defaults.
func New(limits Limits) *Analyzer {
	d := DefaultLimits()
	if limits.SampleBytes <= 0 {
		limits.SampleBytes = d.SampleBytes
	}
	if limits.MaxTextLines <= 0 {
		limits.MaxTextLines = d.MaxTextLines
	}
	if limits.MaxLineRunes <= 0 {
		limits.MaxLineRunes = d.MaxLineRunes
	}
	if limits.MaxBlocksPerPage <= 0 {
		limits.MaxBlocksPerPage = d.MaxBlocksPerPage
	}
	if limits.ACComponents <= 0 {
		limits.ACComponents = d.ACComponents
	}
	return &Analyzer{limits: limits}
}

// Limits returns the limits this analyzer was built with.
func (a *Analyzer) Limits() Limits {
	return a.limits
}
