package api

import (
	"encoding/json"

	"notesec/internal/models"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// SaveMessageRequest is the body of PUT /v1/conversations/{id}/messages/{index}.
type SaveMessageRequest struct {
	Identity string          `json:"identity,omitempty"`
	Payload  json.RawMessage `json:"payload"`
	Force    bool            `json:"force,omitempty"`
}

// SaveMessageResponse reports whether the container was rewritten.
type SaveMessageResponse struct {
	Written bool   `json:"written"`
	Path    string `json:"path,omitempty"`
}

// AttachmentSource is a tagged payload descriptor.
type AttachmentSource struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// SaveAttachmentRequest is the body of POST /v1/conversations/{id}/attachments.
type SaveAttachmentRequest struct {
	AttachmentID string            `json:"attachment_id"`
	MediaType    string            `json:"media_type,omitempty"`
	Filename     string            `json:"filename,omitempty"`
	Summary      *string           `json:"summary,omitempty"`
	Source       *AttachmentSource `json:"source,omitempty"`
}

// SaveAttachmentResponse carries the container path.
type SaveAttachmentResponse struct {
	AttachmentID string `json:"attachment_id"`
	Path         string `json:"path"`
}

// NoteCreateRequest is the body of POST /v1/notes.
type NoteCreateRequest struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NoteResponse wraps a stored note.
type NoteResponse struct {
	models.Note
}
