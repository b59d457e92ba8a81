package timecapsule

// allowedMimeTypes maps the admissible file MIME types to their item kind.
// Anything outside this allowlist is rejected with ErrUnsupportedType.
var allowedMimeTypes = map[string]ItemKind{
	"image/jpeg":      ItemKindImage,
	"image/png":       ItemKindImage,
	"image/webp":      ItemKindImage,
	"video/mp4":       ItemKindVideo,
	"audio/mpeg":      ItemKindAudio,
	"application/pdf": ItemKindPDF,
}

// KindForMimeType maps a declared MIME type to its item kind.
func KindForMimeType(mimeType string) (ItemKind, error) {
	kind, ok := allowedMimeTypes[mimeType]
	if !ok {
		return "", ErrUnsupportedType
	}
	return kind, nil
}
