package metadata

import (
	"errors"
	"fmt"

	exif "github.com/dsoprea/go-exif/v3"
)

// FromEXIF extracts the EXIF block of an image as tag name/value pairs.
// Images without EXIF yield empty metadata and no error.
func FromEXIF(imageData []byte) (Metadata, error) {
	md := make(Metadata)

	rawExif, err := exif.SearchAndExtractExif(imageData)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return md, nil
		}
		return nil, fmt.Errorf("locating exif: %w", err)
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing exif: %w", err)
	}

	for _, entry := range entries {
		// First occurrence wins; thumbnails repeat tags in IFD1.
		if _, seen := md[entry.TagName]; seen {
			continue
		}
		md[entry.TagName] = entry.Formatted
	}
	return md, nil
}
