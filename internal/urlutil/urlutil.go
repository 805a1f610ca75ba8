package urlutil

import (
	"net/url"
	"path"
	"strings"
)

// Asset directories exposed through the public image routes.
const (
	PermanentDir = "images"
	TemporaryDir = "temp_images"
)

const assetPrefix = "/api/images/"

// AssetURL builds the canonical public URL for an asset in the given
// directory. Reference-integrity checks compare against this exact form.
func AssetURL(directory, filename string) string {
	return assetPrefix + directory + "/" + filename
}

// IsTemporaryURL reports whether raw points into the temporary image
// directory.
func IsTemporaryURL(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), assetPrefix+TemporaryDir+"/")
}

// FilenameFromURL extracts the final path element of an asset URL, dropping
// query strings and fragments. Returns "" when nothing usable remains.
func FilenameFromURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if parsed, err := url.Parse(trimmed); err == nil {
		trimmed = parsed.Path
	}

	base := path.Base(trimmed)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
