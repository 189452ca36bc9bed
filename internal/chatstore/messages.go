package chatstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"notesec/internal/container"
	"notesec/internal/errkind"
	"notesec/internal/models"
)

// DefaultReadConcurrency caps in-flight container reads during ReadAll.
const DefaultReadConcurrency = 10

// MessageStore keeps one single-slot container per (conversation, index).
type MessageStore struct {
	codec           *container.Codec
	layout          *Layout
	readConcurrency int
	logger          *slog.Logger

	// readOne loads one container during ReadAll; tests wrap it.
	readOne func(ctx context.Context, path string) (json.RawMessage, error)
}

// MessageStoreOptions tunes a MessageStore.
type MessageStoreOptions struct {
	ReadConcurrency int
	Logger          *slog.Logger
}

// NewMessageStore constructs a MessageStore.
func NewMessageStore(codec *container.Codec, layout *Layout, opts MessageStoreOptions) (*MessageStore, error) {
	if codec == nil || layout == nil {
		return nil, fmt.Errorf("message store requires a codec and a layout")
	}
	if opts.ReadConcurrency <= 0 {
		opts.ReadConcurrency = DefaultReadConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &MessageStore{
		codec:           codec,
		layout:          layout,
		readConcurrency: opts.ReadConcurrency,
		logger:          logger.With("component", "messages"),
	}
	s.readOne = s.readPayload
	return s, nil
}

// Save writes msg to its container. It returns the container path when the
// container was written and "" when an identical save was skipped. A
// different identity already stored at the same index fails with
// errkind.ErrConflict unless msg.Force is set.
func (s *MessageStore) Save(ctx context.Context, msg models.Message) (string, error) {
	path, err := s.layout.MessagePath(msg.ConversationID, msg.Index)
	if err != nil {
		return "", err
	}
	payload := msg.Payload
	if len(payload) == 0 || !json.Valid(payload) {
		return "", fmt.Errorf("%w: message payload must be a JSON value", errkind.ErrInvalid)
	}
	identity := msg.Identity
	if identity == "" {
		identity = models.PayloadIdentity(payload)
	}

	out, err := s.codec.Write(ctx, path, container.WriteRequest{
		Updates:  map[string][]byte{models.MessageEntry: payload},
		Identity: identity,
		Force:    msg.Force,
	})
	if err != nil {
		return "", fmt.Errorf("save message %s/%04d: %w", msg.ConversationID, msg.Index, err)
	}
	if !out.Written() {
		return "", nil
	}
	s.logger.Debug("message saved", "conversation_id", msg.ConversationID, "index", msg.Index, "identity", identity, "force", msg.Force)
	return out.Path, nil
}

// Read returns the payload stored at one index.
func (s *MessageStore) Read(ctx context.Context, conversationID string, index uint16) (json.RawMessage, error) {
	path, err := s.layout.MessagePath(conversationID, index)
	if err != nil {
		return nil, err
	}
	return s.readPayload(ctx, path)
}

// ReadAll returns every payload of a conversation in ascending index order.
// A conversation without a directory is empty. Any filename that does not
// carry a valid 16-bit index fails the whole read with errkind.ErrParse, and
// the first failing container aborts the read.
func (s *MessageStore) ReadAll(ctx context.Context, conversationID string) ([]json.RawMessage, error) {
	dir, err := s.layout.ConversationDir(conversationID)
	if err != nil {
		return nil, err
	}
	indexed, err := listMessageFiles(dir)
	if err != nil {
		return nil, err
	}

	out := make([]json.RawMessage, len(indexed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.readConcurrency)
	for i, item := range indexed {
		g.Go(func() error {
			payload, err := s.readOne(gctx, filepath.Join(dir, item.name))
			if err != nil {
				return fmt.Errorf("read message %s/%s: %w", conversationID, item.name, err)
			}
			out[i] = payload
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MessageStore) readPayload(ctx context.Context, path string) (json.RawMessage, error) {
	body, err := s.codec.Read(ctx, path, models.MessageEntry)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s does not hold a JSON payload", errkind.ErrCorrupt, path)
	}
	return json.RawMessage(body), nil
}

type indexedFile struct {
	index uint16
	name  string
}

func listMessageFiles(dir string) ([]indexedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []indexedFile{}, nil
		}
		return nil, fmt.Errorf("%w: list %s: %w", errkind.ErrIO, dir, err)
	}

	files := make([]indexedFile, 0, len(entries))
	seen := make(map[uint16]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != messageExt {
			continue
		}
		stem := strings.TrimSuffix(name, messageExt)
		index, err := strconv.ParseUint(stem, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: message file %q has no valid sequence index: %w", errkind.ErrParse, name, err)
		}
		if prev, dup := seen[uint16(index)]; dup {
			return nil, fmt.Errorf("%w: message files %q and %q share index %d", errkind.ErrParse, prev, name, index)
		}
		seen[uint16(index)] = name
		files = append(files, indexedFile{index: uint16(index), name: name})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].index < files[j].index })
	return files, nil
}
