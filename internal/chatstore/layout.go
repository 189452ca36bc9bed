// Package chatstore keeps conversation messages and attachments as encrypted
// containers under a per-conversation directory.
package chatstore

import (
	"fmt"
	"path/filepath"
	"strings"

	"notesec/internal/errkind"
)

const (
	DefaultConversationsDir = "chats"

	messageExt   = ".message"
	filesDirName = "files"
)

// Layout maps conversation, message and attachment ids onto paths under
// <data_root>/<conversations_dir>.
type Layout struct {
	root string
}

// NewLayout creates a Layout rooted at dataRoot/conversationsDir.
func NewLayout(dataRoot, conversationsDir string) (*Layout, error) {
	dataRoot = strings.TrimSpace(dataRoot)
	if dataRoot == "" {
		return nil, fmt.Errorf("%w: data root is required", errkind.ErrInvalid)
	}
	conversationsDir = strings.TrimSpace(conversationsDir)
	if conversationsDir == "" {
		conversationsDir = DefaultConversationsDir
	}
	if err := validateSegment("conversations dir", conversationsDir); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dataRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errkind.ErrIO, err)
	}
	return &Layout{root: filepath.Join(abs, conversationsDir)}, nil
}

// Root returns the directory holding every conversation.
func (l *Layout) Root() string {
	return l.root
}

// ConversationDir returns <root>/<conversation_id>.
func (l *Layout) ConversationDir(conversationID string) (string, error) {
	if err := validateSegment("conversation id", conversationID); err != nil {
		return "", err
	}
	return filepath.Join(l.root, conversationID), nil
}

// MessagePath returns <root>/<conversation_id>/<index:04>.message.
func (l *Layout) MessagePath(conversationID string, index uint16) (string, error) {
	dir, err := l.ConversationDir(conversationID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, MessageFilename(index)), nil
}

// AttachmentPath returns <root>/<conversation_id>/files/<attachment_id>.
func (l *Layout) AttachmentPath(conversationID, attachmentID string) (string, error) {
	dir, err := l.ConversationDir(conversationID)
	if err != nil {
		return "", err
	}
	if err := validateSegment("attachment id", attachmentID); err != nil {
		return "", err
	}
	return filepath.Join(dir, filesDirName, attachmentID), nil
}

// MessageFilename formats the container filename for a sequence index.
func MessageFilename(index uint16) string {
	return fmt.Sprintf("%04d%s", index, messageExt)
}

func validateSegment(what, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", errkind.ErrInvalid, what)
	}
	if value == "." || value == ".." || strings.ContainsAny(value, `/\`) || strings.ContainsRune(value, 0) {
		return fmt.Errorf("%w: invalid %s %q", errkind.ErrInvalid, what, value)
	}
	return nil
}
