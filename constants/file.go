package constants

import "strings"

// AllowedImageTypes is the allow-list of media types accepted by the upload
// boundary. Anything else is rejected before storage or OCR is attempted.
var AllowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/heic": {},
}

// IsAllowedImageType reports whether the declared media type is accepted.
// Parameters after a semicolon (e.g. "image/jpeg; charset=binary") are ignored.
func IsAllowedImageType(mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	_, ok := AllowedImageTypes[mt]
	return ok
}

// ExtForType maps an allowed media type to the extension used for stored objects.
func ExtForType(mediaType string) string {
	switch {
	case strings.Contains(mediaType, "png"):
		return "png"
	case strings.Contains(mediaType, "webp"):
		return "webp"
	case strings.Contains(mediaType, "heic"):
		return "heic"
	default:
		return "jpg"
	}
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
