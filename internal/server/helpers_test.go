package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"notesec/internal/api"
	"notesec/internal/chatstore"
	"notesec/internal/container"
	"notesec/internal/resolver"
	"notesec/internal/store"
)

type testServer struct {
	*Server
	layout *chatstore.Layout
	codec  *container.Codec
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	t.Setenv(apiTokenEnvKey, "")

	key, err := container.NewKey(bytes.Repeat([]byte{9}, container.KeySize))
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	codec, err := container.NewCodec(key, nil)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	root := t.TempDir()
	layout, err := chatstore.NewLayout(root, "")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	messages, err := chatstore.NewMessageStore(codec, layout, chatstore.MessageStoreOptions{})
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	attachments, err := chatstore.NewAttachmentStore(codec, layout, nil)
	if err != nil {
		t.Fatalf("attachments: %v", err)
	}
	notes, err := store.Open(filepath.Join(root, "notes.db"))
	if err != nil {
		t.Fatalf("notes: %v", err)
	}
	t.Cleanup(func() { notes.Close() })

	res := resolver.New(resolver.Options{Notes: notes})
	chat := NewChatService(messages, attachments, res, notes, nil)
	return testServer{Server: New("127.0.0.1:0", chat, nil), layout: layout, codec: codec}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var errResp api.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v (%s)", err, w.Body.String())
	}
	return errResp
}
