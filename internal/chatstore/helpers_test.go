package chatstore

import (
	"bytes"
	"testing"

	"notesec/internal/container"
)

type testEnv struct {
	codec       *container.Codec
	layout      *Layout
	messages    *MessageStore
	attachments *AttachmentStore
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	key, err := container.NewKey(bytes.Repeat([]byte{3}, container.KeySize))
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	codec, err := container.NewCodec(key, nil)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	layout, err := NewLayout(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new layout: %v", err)
	}
	messages, err := NewMessageStore(codec, layout, MessageStoreOptions{})
	if err != nil {
		t.Fatalf("new message store: %v", err)
	}
	attachments, err := NewAttachmentStore(codec, layout, nil)
	if err != nil {
		t.Fatalf("new attachment store: %v", err)
	}
	return testEnv{codec: codec, layout: layout, messages: messages, attachments: attachments}
}
