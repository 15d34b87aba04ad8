// Package loader fetches model assets and decodes them into scene graphs.
package loader

import (
	"fmt"
	"path"
	"strings"
)

// Format identifies the decoder family used for an asset.
type Format string

// Supported asset formats.
const (
	FormatMeshPBR   Format = "mesh-pbr"   // glTF 2.0, JSON or binary
	FormatLegacyOBJ Format = "legacy-obj" // Wavefront OBJ
)

// ModelAsset is an immutable reference to a model file.
type ModelAsset struct {
	URL    string
	Format Format
}

// NewAsset derives the format from the URL's extension.
func NewAsset(url string) (ModelAsset, error) {
	if strings.TrimSpace(url) == "" {
		return ModelAsset{}, &LoadFailedError{URL: url, Cause: ErrEmptyURL}
	}
	ext := Extension(url)
	format, ok := formatFor(ext)
	if !ok {
		return ModelAsset{}, &UnsupportedFormatError{Extension: ext}
	}
	return ModelAsset{URL: url, Format: format}, nil
}

func (a ModelAsset) String() string {
	return fmt.Sprintf("%s (%s)", a.URL, a.Format)
}

func formatFor(ext string) (Format, bool) {
	switch ext {
	case "gltf", "glb":
		return FormatMeshPBR, true
	case "obj":
		return FormatLegacyOBJ, true
	default:
		return "", false
	}
}

// Extension returns the lowercase suffix after the last dot of the URL's
// path component. Query strings and fragments are ignored.
func Extension(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	ext := path.Ext(strings.ReplaceAll(url, "\\", "/"))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// EscapeURL percent-encodes characters that are not valid in a URI while
// keeping reserved delimiters and existing escapes intact.
func EscapeURL(s string) string {
	const hex = "0123456789ABCDEF"

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			sb.WriteByte(c)
		case keepInURI(c):
			sb.WriteByte(c)
		default:
			sb.WriteByte('%')
			sb.WriteByte(hex[c>>4])
			sb.WriteByte(hex[c&0x0F])
		}
	}
	return sb.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func keepInURI(c byte) bool {
	if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' {
		return true
	}
	return strings.IndexByte("-_.!~*'();,/?:@&=+$#", c) >= 0
}
