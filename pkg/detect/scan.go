package detect

import (
	"bytes"
	"regexp"
)

// Sample returns the first n bytes of data, or all of it when shorter.
func Sample(data []byte, n int) []byte {
	if n <= 0 || len(data) <= n {
		return data
	}
	return data[:n]
}

type span struct {
	start, end int
}

// findUnique returns the match spans of re in data, deduplicated by offsets.
func findUnique(re *regexp.Regexp, data []byte) []span {
	locs := re.FindAllIndex(data, -1)
	seen := make(map[span]bool, len(locs))
	out := make([]span, 0, len(locs))
	for _, loc := range locs {
		s := span{start: loc[0], end: loc[1]}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// snippet returns up to n bytes of data starting at off.
func snippet(data []byte, off, n int) string {
	end := off + n
	if end > len(data) {
		end = len(data)
	}
	return string(data[off:end])
}

// containsAny reports whether any token occurs in the first limit bytes.
func containsAny(data []byte, limit int, tokens ...string) bool {
	sample := Sample(data, limit)
	for _, tok := range tokens {
		if bytes.Contains(sample, []byte(tok)) {
			return true
		}
	}
	return false
}

// Markers are cheap structural flags read straight from the document bytes.
type Markers struct {
	FormsOrAnnotations bool `json:"forms_or_annotations"`
	JavaScript         bool `json:"javascript"`
	EmbeddedFiles      bool `json:"embedded_files"`
	IncrementalUpdates int  `json:"incremental_updates"` // count of startxref keywords
	ImageObjects       int  `json:"image_objects"`
}

// ScanMarkers reports form, script, attachment and revision markers.
func ScanMarkers(data []byte) Markers {
	return Markers{
		FormsOrAnnotations: containsAny(data, 6_000_000, "/AcroForm", "/Annots"),
		JavaScript:         containsAny(data, 4_000_000, "/JavaScript", "/JS"),
		EmbeddedFiles:      containsAny(data, 6_000_000, "/EmbeddedFiles", "/FileAttachment"),
		IncrementalUpdates: bytes.Count(data, []byte("startxref")),
		ImageObjects:       len(imageObjectRe.FindAllIndex(Sample(data, 2_000_000), -1)),
	}
}

var imageObjectRe = regexp.MustCompile(`/Subtype\s*/Image`)
