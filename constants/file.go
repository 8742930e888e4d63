package constants

import "strings"

// Media types accepted at ingestion.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypePNG  = "image/png"
	MediaTypeJPEG = "image/jpeg"
	MediaTypeTIFF = "image/tiff"
	MediaTypeText = "text/plain"
)

// MediaTypeByExt maps a normalized file extension to its media type.
var MediaTypeByExt = map[string]string{
	"pdf":  MediaTypePDF,
	"png":  MediaTypePNG,
	"jpg":  MediaTypeJPEG,
	"jpeg": MediaTypeJPEG,
	"tif":  MediaTypeTIFF,
	"tiff": MediaTypeTIFF,
	"txt":  MediaTypeText,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToMediaType returns the media type for a file extension, or "" if
// the extension is not supported.
func MapExtToMediaType(ext string) string {
	return MediaTypeByExt[NormalizeExt(ext)]
}

// IsSupportedMediaType reports whether the pipeline accepts the media type.
func IsSupportedMediaType(mt string) bool {
	switch mt {
	case MediaTypePDF, MediaTypePNG, MediaTypeJPEG, MediaTypeTIFF, MediaTypeText:
		return true
	}
	return false
}

// RequiresOCR reports whether a media type needs the OCR collaborator.
// Plain text documents are read directly.
func RequiresOCR(mt string) bool {
	return mt != MediaTypeText
}
