package chatstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"notesec/internal/errkind"
	"notesec/internal/models"
)

func TestMessageSaveIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	msg := models.Message{ConversationID: "c1", Index: 0, Identity: "m1", Payload: json.RawMessage(`{"text":"hi"}`)}

	path, err := env.messages.Save(ctx, msg)
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if filepath.Base(path) != "0000.message" {
		t.Fatalf("unexpected path %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	for i := 0; i < 2; i++ {
		again, err := env.messages.Save(ctx, msg)
		if err != nil {
			t.Fatalf("repeat save: %v", err)
		}
		if again != "" {
			t.Fatalf("expected skipped save, got path %s", again)
		}
	}

	after, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat after: %v", err)
	}
	if !after.ModTime().Equal(info.ModTime()) || after.Size() != info.Size() {
		t.Fatal("expected skipped saves to leave the container untouched")
	}
}

func TestMessageConflictThenForce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.messages.Save(ctx, models.Message{ConversationID: "c1", Index: 1, Identity: "m1", Payload: json.RawMessage(`{"text":"hi"}`)}); err != nil {
		t.Fatalf("save m1: %v", err)
	}

	second := models.Message{ConversationID: "c1", Index: 1, Identity: "m2", Payload: json.RawMessage(`{"text":"hi2"}`)}
	if _, err := env.messages.Save(ctx, second); !errors.Is(err, errkind.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	second.Force = true
	path, err := env.messages.Save(ctx, second)
	if err != nil {
		t.Fatalf("forced save: %v", err)
	}
	if path == "" {
		t.Fatal("expected forced save to write")
	}

	got, err := env.messages.Read(ctx, "c1", 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `{"text":"hi2"}` {
		t.Fatalf("expected new payload, got %s", got)
	}
	identity, err := env.codec.Identity(ctx, path)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if identity != "m2" {
		t.Fatalf("expected identity m2, got %q", identity)
	}
}

func TestMessageIdentityFallsBackToPayloadID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.messages.Save(ctx, models.Message{ConversationID: "c1", Index: 2, Payload: json.RawMessage(`{"id":"a","text":"x"}`)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := env.messages.Save(ctx, models.Message{ConversationID: "c1", Index: 2, Payload: json.RawMessage(`{"id":"b","text":"y"}`)})
	if !errors.Is(err, errkind.ErrConflict) {
		t.Fatalf("expected conflict from payload ids, got %v", err)
	}
}

func TestMessageSaveRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []models.Message{
		{ConversationID: "c1", Payload: json.RawMessage(`{broken`)},
		{ConversationID: "c1"},
		{ConversationID: "../c1", Payload: json.RawMessage(`{}`)},
		{ConversationID: "", Payload: json.RawMessage(`{}`)},
	}
	for _, msg := range tests {
		if _, err := env.messages.Save(ctx, msg); !errors.Is(err, errkind.ErrInvalid) {
			t.Fatalf("expected invalid for %#v, got %v", msg, err)
		}
	}
}

func TestReadAllOrdersByIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, idx := range []uint16{3, 1, 2} {
		payload, _ := json.Marshal(map[string]int{"n": int(idx)})
		if _, err := env.messages.Save(ctx, models.Message{ConversationID: "c1", Index: idx, Identity: "m", Payload: payload}); err != nil {
			t.Fatalf("save %d: %v", idx, err)
		}
	}

	got, err := env.messages.ReadAll(ctx, "c1")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	want := []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}
	if len(got) != len(want) {
		t.Fatalf("expected %d payloads, got %d", len(want), len(got))
	}
	for i := range want {
		if string(got[i]) != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestReadAllManyMessagesUnderConcurrencyCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const total = 37
	const limit = 3

	store, err := NewMessageStore(env.codec, env.layout, MessageStoreOptions{ReadConcurrency: limit})
	if err != nil {
		t.Fatalf("new message store: %v", err)
	}
	for i := total - 1; i >= 0; i-- {
		payload, _ := json.Marshal(map[string]int{"n": i})
		if _, err := store.Save(ctx, models.Message{ConversationID: "big", Index: uint16(i), Payload: payload}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	var inFlight, peak, calls atomic.Int32
	read := store.readOne
	store.readOne = func(ctx context.Context, path string) (json.RawMessage, error) {
		calls.Add(1)
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			cur := peak.Load()
			if n <= cur || peak.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return read(ctx, path)
	}

	got, err := store.ReadAll(ctx, "big")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if calls.Load() != total {
		t.Fatalf("expected %d container reads, got %d", total, calls.Load())
	}
	if p := peak.Load(); p > limit {
		t.Fatalf("expected at most %d reads in flight, saw %d", limit, p)
	} else if p < 2 {
		t.Fatalf("expected reads to overlap, peak was %d", p)
	}

	if len(got) != total {
		t.Fatalf("expected %d payloads, got %d", total, len(got))
	}
	for i, raw := range got {
		var body map[string]int
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode %d: %v", i, err)
		}
		if body["n"] != i {
			t.Fatalf("position %d holds message %d", i, body["n"])
		}
	}
}

func TestReadAllDefaultsConcurrencyCap(t *testing.T) {
	env := newTestEnv(t)
	if env.messages.readConcurrency != DefaultReadConcurrency {
		t.Fatalf("expected default cap %d, got %d", DefaultReadConcurrency, env.messages.readConcurrency)
	}
}

func TestReadAllMissingConversationIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	got, err := env.messages.ReadAll(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestReadAllStrictIndexParsing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.messages.Save(ctx, models.Message{ConversationID: "c1", Index: 1, Payload: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("save: %v", err)
	}
	dir, err := env.layout.ConversationDir("c1")
	if err != nil {
		t.Fatalf("dir: %v", err)
	}

	for _, name := range []string{"abc.message", "70000.message", "-1.message"} {
		t.Run(name, func(t *testing.T) {
			stray := filepath.Join(dir, name)
			if err := os.WriteFile(stray, []byte("x"), 0o644); err != nil {
				t.Fatalf("write stray: %v", err)
			}
			defer os.Remove(stray)

			if _, err := env.messages.ReadAll(ctx, "c1"); !errors.Is(err, errkind.ErrParse) {
				t.Fatalf("expected parse error, got %v", err)
			}
		})
	}
}

func TestReadAllRejectsDuplicateIndex(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path, err := env.messages.Save(ctx, models.Message{ConversationID: "c1", Index: 1, Payload: json.RawMessage(`{}`)})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "1.message"), body, 0o644); err != nil {
		t.Fatalf("write duplicate: %v", err)
	}

	if _, err := env.messages.ReadAll(ctx, "c1"); !errors.Is(err, errkind.ErrParse) {
		t.Fatalf("expected parse error for duplicate index, got %v", err)
	}
}

func TestReadAllIgnoresTempFilesAndAttachments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	path, err := env.messages.Save(ctx, models.Message{ConversationID: "c1", Index: 4, Payload: json.RawMessage(`"only"`)})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(path+".998.tmp", []byte("partial"), 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}
	if _, err := env.attachments.Save(ctx, models.Attachment{ConversationID: "c1", AttachmentID: "f1", MediaType: "text/plain"}); err != nil {
		t.Fatalf("save attachment: %v", err)
	}

	got, err := env.messages.ReadAll(ctx, "c1")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(got) != 1 || string(got[0]) != `"only"` {
		t.Fatalf("unexpected payloads %v", got)
	}
}

func TestReadAllFailsFastOnCorruptContainer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, idx := range []uint16{1, 2, 3} {
		if _, err := env.messages.Save(ctx, models.Message{ConversationID: "c1", Index: idx, Payload: json.RawMessage(`{}`)}); err != nil {
			t.Fatalf("save %d: %v", idx, err)
		}
	}
	path, err := env.layout.MessagePath("c1", 2)
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	got, err := env.messages.ReadAll(ctx, "c1")
	if !errors.Is(err, errkind.ErrCorrupt) {
		t.Fatalf("expected corrupt error, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected no partial result, got %v", got)
	}
}
