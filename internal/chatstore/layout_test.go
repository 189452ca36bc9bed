package chatstore

import (
	"errors"
	"path/filepath"
	"testing"

	"notesec/internal/errkind"
)

func TestLayoutPaths(t *testing.T) {
	root := t.TempDir()
	layout, err := NewLayout(root, "")
	if err != nil {
		t.Fatalf("new layout: %v", err)
	}
	if layout.Root() != filepath.Join(root, DefaultConversationsDir) {
		t.Fatalf("unexpected root %s", layout.Root())
	}

	msg, err := layout.MessagePath("c1", 7)
	if err != nil {
		t.Fatalf("message path: %v", err)
	}
	if msg != filepath.Join(root, "chats", "c1", "0007.message") {
		t.Fatalf("unexpected message path %s", msg)
	}
	att, err := layout.AttachmentPath("c1", "f1")
	if err != nil {
		t.Fatalf("attachment path: %v", err)
	}
	if att != filepath.Join(root, "chats", "c1", "files", "f1") {
		t.Fatalf("unexpected attachment path %s", att)
	}
}

func TestMessageFilenameWidth(t *testing.T) {
	cases := map[uint16]string{0: "0000.message", 42: "0042.message", 12345: "12345.message", 65535: "65535.message"}
	for index, want := range cases {
		if got := MessageFilename(index); got != want {
			t.Fatalf("index %d: expected %s, got %s", index, want, got)
		}
	}
}

func TestLayoutRejectsUnsafeSegments(t *testing.T) {
	layout, err := NewLayout(t.TempDir(), "custom")
	if err != nil {
		t.Fatalf("new layout: %v", err)
	}
	for _, id := range []string{"", ".", "..", "a/b", `a\b`} {
		if _, err := layout.ConversationDir(id); !errors.Is(err, errkind.ErrInvalid) {
			t.Fatalf("expected invalid for %q, got %v", id, err)
		}
	}
	if _, err := NewLayout("", ""); !errors.Is(err, errkind.ErrInvalid) {
		t.Fatalf("expected invalid for empty root, got %v", err)
	}
	if _, err := NewLayout(t.TempDir(), "../up"); !errors.Is(err, errkind.ErrInvalid) {
		t.Fatalf("expected invalid for escaping conversations dir, got %v", err)
	}
}
