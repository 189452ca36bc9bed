package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPTimeoutFromEnv(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "")
		if got := httpTimeoutFromEnv(); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})

	t.Run("duration format", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "45s")
		if got := httpTimeoutFromEnv(); got != 45*time.Second {
			t.Fatalf("expected 45s timeout, got %v", got)
		}
	})

	t.Run("integer seconds", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "25")
		if got := httpTimeoutFromEnv(); got != 25*time.Second {
			t.Fatalf("expected 25s timeout, got %v", got)
		}
	})

	t.Run("invalid falls back", func(t *testing.T) {
		t.Setenv(httpTimeoutEnvKey, "invalid")
		if got := httpTimeoutFromEnv(); got != defaultHTTPTimeout {
			t.Fatalf("expected default timeout %v, got %v", defaultHTTPTimeout, got)
		}
	})
}

func TestClientSaveMessageSendsBody(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody SaveMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.EscapedPath(), r.Method
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"written":true,"path":"/x/0003.message"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/")
	resp, err := client.SaveMessage(context.Background(), "conv 1", 3, SaveMessageRequest{Identity: "m1", Payload: json.RawMessage(`{"a":1}`)})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !resp.Written || resp.Path != "/x/0003.message" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if gotMethod != http.MethodPut || gotPath != "/v1/conversations/conv%201/messages/3" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if gotBody.Identity != "m1" || string(gotBody.Payload) != `{"a":1}` {
		t.Fatalf("unexpected body %+v", gotBody)
	}
}

func TestClientDecodesStructuredErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"identity mismatch","code":"conflict","error_code":2102}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).LoadConversation(context.Background(), "c1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.ErrorCode != 2102 || ErrorKind(err) != "conflict" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if apiErr.Error() != "conflict: identity mismatch" {
		t.Fatalf("unexpected message %q", apiErr.Error())
	}
}

func TestClientUnstructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).Ping(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway || apiErr.Code != "" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestClientReadAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/conversations/c1/attachments/f1/data" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	ct, err := NewClient(srv.URL).ReadAttachment(context.Background(), "c1", "f1", "data", &buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ct != "image/png" || buf.String() != "png" {
		t.Fatalf("unexpected result %q %q", ct, buf.String())
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	t.Setenv(apiTokenEnvKey, "s3cret")
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if got != "Bearer s3cret" {
		t.Fatalf("expected bearer header, got %q", got)
	}
}
