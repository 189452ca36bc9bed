package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"notesec/internal/api"
)

func TestNoteRoundTripAndReference(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	w := doJSON(t, h, http.MethodPost, "/v1/notes", api.NoteCreateRequest{ID: "n1", Title: "Plan", Content: "# plan\n- ship"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/v1/notes/n1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var note api.NoteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &note); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if note.ID != "n1" || note.Content != "# plan\n- ship" {
		t.Fatalf("unexpected note %+v", note)
	}

	w = doJSON(t, h, http.MethodPost, "/v1/conversations/c1/attachments", api.SaveAttachmentRequest{
		AttachmentID: "ref1",
		Source:       &api.AttachmentSource{Kind: "ref", Value: "n1"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	w = doJSON(t, h, http.MethodGet, "/v1/conversations/c1/attachments/ref1/data", nil)
	if w.Body.String() != "# plan\n- ship" || w.Header().Get("Content-Type") != "text/markdown" {
		t.Fatalf("unexpected referenced data %q %q", w.Header().Get("Content-Type"), w.Body.String())
	}
}

func TestNoteErrors(t *testing.T) {
	srv := newTestServer(t)
	h := srv.routes()

	w := doJSON(t, h, http.MethodGet, "/v1/notes/ghost", nil)
	if w.Code != http.StatusNotFound || decodeErrorBody(t, w).ErrorCode != ErrCodeNoteNotFound {
		t.Fatalf("expected not found, got %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodPost, "/v1/notes", api.NoteCreateRequest{Title: ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	if w = doJSON(t, h, http.MethodPost, "/v1/notes", api.NoteCreateRequest{ID: "d", Title: "a"}); w.Code != http.StatusCreated {
		t.Fatalf("create: %d", w.Code)
	}
	w = doJSON(t, h, http.MethodPost, "/v1/notes", api.NoteCreateRequest{ID: "d", Title: "b"})
	if w.Code != http.StatusConflict || decodeErrorBody(t, w).ErrorCode != ErrCodeNoteIDExists {
		t.Fatalf("expected note id conflict, got %d %s", w.Code, w.Body.String())
	}
}
