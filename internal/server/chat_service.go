package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"notesec/internal/api"
	"notesec/internal/chatstore"
	"notesec/internal/errkind"
	"notesec/internal/models"
	"notesec/internal/resolver"
	"notesec/internal/store"
)

// ChatService implements the conversation boundary operations on top of the
// message and attachment stores.
type ChatService struct {
	messages    *chatstore.MessageStore
	attachments *chatstore.AttachmentStore
	resolver    *resolver.Resolver
	notes       store.NoteStore
	logger      *slog.Logger
}

// NewChatService wires the stores together.
func NewChatService(messages *chatstore.MessageStore, attachments *chatstore.AttachmentStore, res *resolver.Resolver, notes store.NoteStore, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		messages:    messages,
		attachments: attachments,
		resolver:    res,
		notes:       notes,
		logger:      logger.With("component", "chat"),
	}
}

// LoadConversation returns every message payload in index order.
func (s *ChatService) LoadConversation(ctx context.Context, conversationID string) ([]json.RawMessage, error) {
	payloads, err := s.messages.ReadAll(ctx, conversationID)
	if err != nil {
		return nil, kindError(err, ErrCodeMessageNotFound)
	}
	return payloads, nil
}

// SaveMessage stores one message. A conflict means the caller's view of the
// conversation is stale.
func (s *ChatService) SaveMessage(ctx context.Context, conversationID string, index uint16, req api.SaveMessageRequest) (api.SaveMessageResponse, error) {
	path, err := s.messages.Save(ctx, models.Message{
		ConversationID: conversationID,
		Index:          index,
		Identity:       strings.TrimSpace(req.Identity),
		Payload:        req.Payload,
		Force:          req.Force,
	})
	if err != nil {
		return api.SaveMessageResponse{}, kindError(err, ErrCodeMessageNotFound)
	}
	return api.SaveMessageResponse{Written: path != "", Path: path}, nil
}

// SaveAttachment resolves the optional source and fills the attachment's
// missing slots.
func (s *ChatService) SaveAttachment(ctx context.Context, conversationID string, req api.SaveAttachmentRequest) (api.SaveAttachmentResponse, error) {
	attachmentID := strings.TrimSpace(req.AttachmentID)
	if attachmentID == "" {
		attachmentID = uuid.NewString()
	}
	att := models.Attachment{
		ConversationID: conversationID,
		AttachmentID:   attachmentID,
		MediaType:      strings.TrimSpace(req.MediaType),
		Filename:       strings.TrimSpace(req.Filename),
		Summary:        req.Summary,
	}

	if req.Source != nil {
		if s.resolver == nil {
			return api.SaveAttachmentResponse{}, kindError(fmt.Errorf("%w: attachment sources are not available", errkind.ErrInvalid), ErrCodeAttachmentNotFound)
		}
		src, err := resolver.ParseSource(req.Source.Kind, req.Source.Value)
		if err != nil {
			return api.SaveAttachmentResponse{}, kindError(err, ErrCodeAttachmentNotFound)
		}
		payload, err := s.resolver.Resolve(ctx, src)
		if err != nil {
			notFoundCode := ErrCodeAttachmentNotFound
			if _, ok := src.(resolver.NoteRef); ok {
				notFoundCode = ErrCodeNoteNotFound
			}
			return api.SaveAttachmentResponse{}, kindError(err, notFoundCode)
		}
		att.Data = payload.Data
		if att.MediaType == "" {
			att.MediaType = payload.MediaType
		}
	}

	path, err := s.attachments.Save(ctx, att)
	if err != nil {
		return api.SaveAttachmentResponse{}, kindError(err, ErrCodeAttachmentNotFound)
	}
	s.logger.Debug("attachment stored", "conversation_id", conversationID, "attachment_id", attachmentID, "has_data", att.Data != nil)
	return api.SaveAttachmentResponse{AttachmentID: attachmentID, Path: path}, nil
}

// AttachmentSlot is one decrypted slot plus the content type to serve it with.
type AttachmentSlot struct {
	Data        []byte
	ContentType string
}

// ReadAttachment returns one slot of an attachment.
func (s *ChatService) ReadAttachment(ctx context.Context, conversationID, attachmentID, rawSlot string) (AttachmentSlot, error) {
	slot, err := models.ParseAttachmentSlot(rawSlot)
	if err != nil {
		return AttachmentSlot{}, badRequestCode(err, ErrCodeInvalidSlot)
	}
	data, err := s.attachments.Read(ctx, conversationID, attachmentID, slot)
	if err != nil {
		return AttachmentSlot{}, kindError(err, ErrCodeAttachmentNotFound)
	}

	contentType := "application/octet-stream"
	switch slot {
	case models.AttachmentSlotMeta:
		contentType = "application/json"
	case models.AttachmentSlotSummary:
		contentType = "text/plain; charset=utf-8"
	case models.AttachmentSlotData:
		if meta, err := s.attachments.Meta(ctx, conversationID, attachmentID); err == nil && meta.MediaType != "" {
			contentType = meta.MediaType
		}
	}
	return AttachmentSlot{Data: data, ContentType: contentType}, nil
}

// CreateNote stores a note that attachments can later reference.
func (s *ChatService) CreateNote(ctx context.Context, req api.NoteCreateRequest) (models.Note, error) {
	note := models.Note{ID: strings.TrimSpace(req.ID), Title: req.Title, Content: req.Content}
	if err := s.notes.CreateNote(ctx, &note); err != nil {
		if errkind.Of(err) == errkind.KindConflict {
			return models.Note{}, makeAPIError(http.StatusConflict, string(errkind.KindConflict), ErrCodeNoteIDExists, err)
		}
		return models.Note{}, kindError(err, ErrCodeNoteNotFound)
	}
	return note, nil
}

// GetNote loads a note.
func (s *ChatService) GetNote(ctx context.Context, id string) (models.Note, error) {
	note, err := s.notes.GetNote(ctx, id)
	if err != nil {
		return models.Note{}, kindError(err, ErrCodeNoteNotFound)
	}
	return note, nil
}
