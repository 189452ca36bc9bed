// Package resolver turns attachment source descriptors into raw bytes.
package resolver

import (
	"fmt"
	"strings"

	"notesec/internal/errkind"
	"notesec/internal/models"
)

// Source is one of URL, DataURI, Path or NoteRef.
type Source interface {
	sourceKind() models.AttachmentSourceKind
}

// URL is a remote http(s) resource.
type URL struct {
	URL string
}

// DataURI is an RFC 2397 data: URI carried inline.
type DataURI struct {
	URI string
}

// Path is a file on the local filesystem.
type Path struct {
	Path string
}

// NoteRef points at a stored note whose markdown content becomes the payload.
type NoteRef struct {
	NoteID string
}

func (URL) sourceKind() models.AttachmentSourceKind     { return models.AttachmentSourceURL }
func (DataURI) sourceKind() models.AttachmentSourceKind { return models.AttachmentSourceDataURI }
func (Path) sourceKind() models.AttachmentSourceKind    { return models.AttachmentSourcePath }
func (NoteRef) sourceKind() models.AttachmentSourceKind { return models.AttachmentSourceNoteRef }

// Kind reports the canonical descriptor kind of src.
func Kind(src Source) models.AttachmentSourceKind {
	if src == nil {
		return ""
	}
	return src.sourceKind()
}

// ParseSource builds a Source from a wire descriptor. Kind aliases are
// accepted, and a url whose value is a data: URI decodes inline.
func ParseSource(kind, value string) (Source, error) {
	parsed, err := models.ParseAttachmentSourceKind(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errkind.ErrInvalid, err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: %s source value is required", errkind.ErrInvalid, parsed)
	}

	switch parsed {
	case models.AttachmentSourceURL:
		if isDataURI(value) {
			return DataURI{URI: value}, nil
		}
		return URL{URL: value}, nil
	case models.AttachmentSourceDataURI:
		return DataURI{URI: value}, nil
	case models.AttachmentSourcePath:
		return Path{Path: value}, nil
	case models.AttachmentSourceNoteRef:
		return NoteRef{NoteID: value}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported source kind %s", errkind.ErrInvalid, parsed)
	}
}

func isDataURI(value string) bool {
	return len(value) >= 5 && strings.EqualFold(value[:5], "data:")
}
