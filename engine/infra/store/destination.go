package store

import (
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
)

// DestinationName derives a safe destination identifier from an input file
// name: the base name without extension plus suffix, restricted to
// [a-z0-9_]. The result is safe to interpolate as an identifier.
func DestinationName(fileName, suffix string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(fileName, `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name := sanitize(base)
	if name == "" {
		return "", ErrInvalidDestination
	}
	if s := sanitize(suffix); s != "" {
		name += "_" + s
	}
	return name, nil
}

func sanitize(s string) string {
	out := slug.Make(strings.ReplaceAll(s, ".", "-"))
	out = strings.ReplaceAll(out, "-", "_")
	return strings.Trim(out, "_")
}
