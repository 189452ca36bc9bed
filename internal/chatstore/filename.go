package chatstore

import (
	"fmt"
	"mime"
	"strings"

	"notesec/internal/errkind"
)

const (
	fallbackMediaType = "application/octet-stream"
	unknownFilename   = "unknown"
)

// mime.ExtensionsByType returns extensions sorted alphabetically, which picks
// odd ones (".jfif" for JPEG); common types get a fixed choice.
var preferredExtensions = map[string]string{
	"image/jpeg":               ".jpg",
	"image/png":                ".png",
	"image/gif":                ".gif",
	"image/webp":               ".webp",
	"image/svg+xml":            ".svg",
	"text/plain":               ".txt",
	"text/markdown":            ".md",
	"text/html":                ".html",
	"text/csv":                 ".csv",
	"application/json":         ".json",
	"application/pdf":          ".pdf",
	"application/zip":          ".zip",
	"audio/mpeg":               ".mp3",
	"video/mp4":                ".mp4",
	"application/octet-stream": "",
}

func normalizeMediaType(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallbackMediaType, nil
	}
	parsed, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid media type %q: %w", errkind.ErrInvalid, raw, err)
	}
	return strings.ToLower(parsed), nil
}

// inferFilename picks <attachment_id><ext> from the media type, or "unknown"
// when no extension is registered for it.
func inferFilename(attachmentID, mediaType string) string {
	ext, ok := preferredExtensions[mediaType]
	if !ok {
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	if ext == "" {
		return unknownFilename
	}
	return attachmentID + ext
}
