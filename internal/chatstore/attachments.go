package chatstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"notesec/internal/container"
	"notesec/internal/errkind"
	"notesec/internal/models"
)

// AttachmentStore keeps one container per (conversation, attachment id) with
// up to three slots: meta, summary and data. Each slot is filled at most once;
// later saves only add slots that are still missing.
type AttachmentStore struct {
	codec  *container.Codec
	layout *Layout
	logger *slog.Logger
}

// NewAttachmentStore constructs an AttachmentStore.
func NewAttachmentStore(codec *container.Codec, layout *Layout, logger *slog.Logger) (*AttachmentStore, error) {
	if codec == nil || layout == nil {
		return nil, fmt.Errorf("attachment store requires a codec and a layout")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AttachmentStore{codec: codec, layout: layout, logger: logger.With("component", "attachments")}, nil
}

// Save fills whichever of the attachment's slots are still empty and returns
// the container path. Slots that already exist are left byte-for-byte intact.
func (s *AttachmentStore) Save(ctx context.Context, att models.Attachment) (string, error) {
	path, err := s.layout.AttachmentPath(att.ConversationID, att.AttachmentID)
	if err != nil {
		return "", err
	}
	mediaType, err := normalizeMediaType(att.MediaType)
	if err != nil {
		return "", err
	}

	present := map[string]struct{}{}
	slots, err := s.codec.Slots(ctx, path)
	switch {
	case errors.Is(err, errkind.ErrNotFound):
	case err != nil:
		return "", fmt.Errorf("save attachment %s/%s: %w", att.ConversationID, att.AttachmentID, err)
	}
	for _, slot := range slots {
		present[slot] = struct{}{}
	}
	missing := func(entry string) bool {
		_, ok := present[entry]
		return !ok
	}

	updates := map[string][]byte{}
	if missing(models.MetaEntry) {
		filename := strings.TrimSpace(att.Filename)
		if filename == "" {
			filename = inferFilename(att.AttachmentID, mediaType)
		}
		meta, err := json.Marshal(models.AttachmentMeta{MediaType: mediaType, Filename: filename})
		if err != nil {
			return "", err
		}
		updates[models.MetaEntry] = meta
	}
	if att.Summary != nil && missing(models.SummaryEntry) {
		updates[models.SummaryEntry] = []byte(*att.Summary)
	}
	if att.Data != nil && missing(models.DataEntry) {
		updates[models.DataEntry] = att.Data
	}

	if len(updates) == 0 {
		s.logger.Debug("attachment already complete", "conversation_id", att.ConversationID, "attachment_id", att.AttachmentID)
		return path, nil
	}

	out, err := s.codec.Write(ctx, path, container.WriteRequest{Updates: updates, Force: true})
	if err != nil {
		return "", fmt.Errorf("save attachment %s/%s: %w", att.ConversationID, att.AttachmentID, err)
	}
	s.logger.Debug("attachment saved", "conversation_id", att.ConversationID, "attachment_id", att.AttachmentID, "slots", len(updates))
	return out.Path, nil
}

// Read returns the decrypted contents of one slot.
func (s *AttachmentStore) Read(ctx context.Context, conversationID, attachmentID string, slot models.AttachmentSlot) ([]byte, error) {
	path, err := s.layout.AttachmentPath(conversationID, attachmentID)
	if err != nil {
		return nil, err
	}
	entry := slot.Entry()
	if entry == "" {
		return nil, fmt.Errorf("%w: unknown attachment slot %q", errkind.ErrInvalid, slot)
	}
	return s.codec.Read(ctx, path, entry)
}

// Meta reads and decodes the meta slot.
func (s *AttachmentStore) Meta(ctx context.Context, conversationID, attachmentID string) (models.AttachmentMeta, error) {
	var meta models.AttachmentMeta
	body, err := s.Read(ctx, conversationID, attachmentID, models.AttachmentSlotMeta)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return meta, fmt.Errorf("%w: attachment meta: %w", errkind.ErrCorrupt, err)
	}
	return meta, nil
}
