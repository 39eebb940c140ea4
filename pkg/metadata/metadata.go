// Package metadata normalizes document metadata into flat key/value pairs
// and extracts timestamps and tool names from them.
//
// PDF info dictionaries, EXIF tags and XMP properties all arrive under
// different key spellings. Lookups go through ordered strategy lists so the
// first source that yields a usable value wins.
package metadata

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Metadata is a flat view of a document's metadata.
type Metadata map[string]string

// Get returns the first non-empty value among keys. Exact matches are tried
// before a case-insensitive pass, which walks stored keys in sorted order.
func (m Metadata) Get(keys ...string) (string, bool) {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v, true
		}
	}
	stored := make([]string, 0, len(m))
	for mk := range m {
		stored = append(stored, mk)
	}
	sort.Strings(stored)
	for _, k := range keys {
		for _, mk := range stored {
			if !strings.EqualFold(mk, k) {
				continue
			}
			if v := strings.TrimSpace(m[mk]); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// Merge returns a copy of m with other's entries layered on top.
func (m Metadata) Merge(other Metadata) Metadata {
	out := make(Metadata, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

var pdfDateRe = regexp.MustCompile(`^(\d{4})(\d{2})?(\d{2})?(\d{2})?(\d{2})?(\d{2})?`)

// ParsePDFDate parses a PDF date string such as D:20240131120000+05'00'.
// Every component after the year is optional. The timezone suffix is
// ignored and the result is in UTC. Out-of-range month or day values fall
// back to December and the 28th before giving up.
func ParsePDFDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "D:")
	m := pdfDateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	part := func(i, def int) int {
		if m[i] == "" {
			return def
		}
		n, _ := strconv.Atoi(m[i])
		return n
	}
	y, mo, d := part(1, 0), part(2, 1), part(3, 1)
	hh, mi, ss := part(4, 0), part(5, 0), part(6, 0)

	if t, ok := civil(y, mo, d, hh, mi, ss); ok {
		return t, true
	}
	return civil(y, min(mo, 12), min(d, 28), hh, mi, ss)
}

// ParseEXIFDate parses the "2006:01:02 15:04:05" form used by EXIF.
func ParseEXIFDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 19 {
		s = s[:19]
	}
	t, err := time.Parse("2006:01:02 15:04:05", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseISODate parses the ISO 8601 variants found in XMP packets.
func ParseISODate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseEmissionDate parses an invoice issue date written as dd/mm/yyyy.
// Dashes are accepted as separators and two-digit years are taken as 20yy.
func ParseEmissionDate(s string) (time.Time, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "-", "/")
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	if len(parts[2]) == 2 {
		parts[2] = "20" + parts[2]
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, false
		}
		n[i] = v
	}
	return civil(n[2], n[1], n[0], 0, 0, 0)
}

// civil builds a UTC time, rejecting components time.Date would normalize.
func civil(y, mo, d, hh, mi, ss int) (time.Time, bool) {
	if y < 1 || mo < 1 || mo > 12 || d < 1 || hh > 23 || mi > 59 || ss > 59 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, hh, mi, ss, 0, time.UTC)
	if t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// DaysBetween returns the whole calendar days from a to b, ignoring the time
// of day.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// WholeDays returns b-a in days, floored. A modification one hour before
// creation is -1 days.
func WholeDays(a, b time.Time) int {
	const day = 24 * time.Hour
	d := b.Sub(a)
	days := int(d / day)
	if d < 0 && d%day != 0 {
		days--
	}
	return days
}
