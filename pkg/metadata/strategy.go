package metadata

import (
	"strings"
	"time"
)

// TimeStrategy extracts a timestamp from metadata, reporting whether it
// found one.
type TimeStrategy func(Metadata) (time.Time, bool)

// StringStrategy extracts a string from metadata.
type StringStrategy func(Metadata) (string, bool)

// FirstTime runs strategies in order and returns the first success.
func FirstTime(md Metadata, strategies ...TimeStrategy) (time.Time, bool) {
	for _, s := range strategies {
		if t, ok := s(md); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// FirstString runs strategies in order and returns the first success.
func FirstString(md Metadata, strategies ...StringStrategy) (string, bool) {
	for _, s := range strategies {
		if v, ok := s(md); ok {
			return v, true
		}
	}
	return "", false
}

func parsedField(parse func(string) (time.Time, bool), keys []string) TimeStrategy {
	return func(md Metadata) (time.Time, bool) {
		for _, k := range keys {
			if v, ok := md.Get(k); ok {
				if t, ok := parse(v); ok {
					return t, true
				}
			}
		}
		return time.Time{}, false
	}
}

// PDFDate reads the first of keys holding a parsable PDF date.
func PDFDate(keys ...string) TimeStrategy { return parsedField(ParsePDFDate, keys) }

// EXIFDate reads the first of keys holding a parsable EXIF date.
func EXIFDate(keys ...string) TimeStrategy { return parsedField(ParseEXIFDate, keys) }

// ISODate reads the first of keys holding a parsable ISO 8601 date.
func ISODate(keys ...string) TimeStrategy { return parsedField(ParseISODate, keys) }

// Field reads the first non-empty value among keys.
func Field(keys ...string) StringStrategy {
	return func(md Metadata) (string, bool) {
		return md.Get(keys...)
	}
}

// CreationStrategies are tried in order to find when a document was created.
var CreationStrategies = []TimeStrategy{
	PDFDate("creationDate", "CreationDate"),
	EXIFDate("DateTimeOriginal", "DateTimeDigitized"),
	ISODate("xmp:CreateDate", "CreateDate"),
}

// ModificationStrategies are tried in order to find when a document was
// last modified.
var ModificationStrategies = []TimeStrategy{
	PDFDate("modDate", "ModDate"),
	EXIFDate("DateTime"),
	ISODate("xmp:ModifyDate", "ModifyDate"),
}

// CreationDate returns the document's creation time.
func CreationDate(md Metadata) (time.Time, bool) {
	return FirstTime(md, CreationStrategies...)
}

// ModificationDate returns the document's last modification time.
func ModificationDate(md Metadata) (time.Time, bool) {
	return FirstTime(md, ModificationStrategies...)
}

// Producer joins the producer and creator fields, lowercased.
func Producer(md Metadata) string {
	producer, _ := md.Get("producer", "Producer")
	creator, _ := md.Get("creator", "Creator")
	return strings.ToLower(strings.TrimSpace(producer + " " + creator))
}

// Software returns the editing tool recorded in EXIF or XMP, if any.
func Software(md Metadata) (string, bool) {
	return FirstString(md,
		Field("Software", "ProcessingSoftware"),
		Field("xmp:CreatorTool", "CreatorTool"),
	)
}
