package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notesec/internal/errkind"
	"notesec/internal/models"
)

const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxBytes     = 100 << 20

	noteMediaType = "text/markdown"
)

// Payload is the resolved attachment body plus the media type the source
// advertised, if any.
type Payload struct {
	Data      []byte
	MediaType string
}

// NoteLookup loads a stored note by id. Unknown ids must fail with
// errkind.ErrNotFound.
type NoteLookup interface {
	GetNote(ctx context.Context, id string) (models.Note, error)
}

// Options configures a Resolver.
type Options struct {
	HTTPClient   *http.Client
	FetchTimeout time.Duration
	MaxBytes     int64
	Notes        NoteLookup
	Logger       *slog.Logger
}

// Resolver fetches attachment payloads from their sources.
type Resolver struct {
	client   *http.Client
	maxBytes int64
	notes    NoteLookup
	logger   *slog.Logger
}

// New constructs a Resolver.
func New(opts Options) *Resolver {
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client:   client,
		maxBytes: maxBytes,
		notes:    opts.Notes,
		logger:   logger.With("component", "resolver"),
	}
}

// Resolve produces the bytes behind src. Failures carry errkind.ErrNotFound
// for missing references, errkind.ErrIO for fetch or read failures and
// errkind.ErrDecode for malformed data URIs.
func (r *Resolver) Resolve(ctx context.Context, src Source) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return Payload{}, err
	}
	var (
		out Payload
		err error
	)
	switch s := src.(type) {
	case URL:
		out, err = r.fetch(ctx, s.URL)
	case DataURI:
		out, err = decodeDataURI(s.URI)
	case Path:
		out, err = r.readFile(s.Path)
	case NoteRef:
		out, err = r.readNote(ctx, s.NoteID)
	case nil:
		return Payload{}, fmt.Errorf("%w: attachment source is required", errkind.ErrInvalid)
	default:
		return Payload{}, fmt.Errorf("%w: unsupported attachment source %T", errkind.ErrInvalid, src)
	}
	if err != nil {
		return Payload{}, err
	}
	r.logger.Debug("attachment source resolved", "kind", Kind(src), "bytes", len(out.Data), "media_type", out.MediaType)
	return out, nil
}

func (r *Resolver) fetch(ctx context.Context, raw string) (Payload, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Payload{}, fmt.Errorf("%w: attachment url must be absolute http(s): %q", errkind.ErrInvalid, raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", errkind.ErrInvalid, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: fetch %s: %w", errkind.ErrIO, u.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Payload{}, fmt.Errorf("%w: fetch %s: unexpected status %s", errkind.ErrIO, u.Redacted(), resp.Status)
	}
	if resp.ContentLength > r.maxBytes {
		return Payload{}, fmt.Errorf("%w: fetch %s: body of %d bytes exceeds limit %d", errkind.ErrIO, u.Redacted(), resp.ContentLength, r.maxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: read %s: %w", errkind.ErrIO, u.Redacted(), err)
	}
	if int64(len(data)) > r.maxBytes {
		return Payload{}, fmt.Errorf("%w: fetch %s: body exceeds limit %d", errkind.ErrIO, u.Redacted(), r.maxBytes)
	}

	mediaType := ""
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if parsed, _, err := mime.ParseMediaType(ct); err == nil {
			mediaType = parsed
		}
	}
	return Payload{Data: data, MediaType: mediaType}, nil
}

func (r *Resolver) readFile(path string) (Payload, error) {
	path = strings.TrimPrefix(path, "file://")
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Payload{}, fmt.Errorf("%w: file %s", errkind.ErrNotFound, path)
		}
		return Payload{}, fmt.Errorf("%w: stat %s: %w", errkind.ErrIO, path, err)
	}
	if info.IsDir() {
		return Payload{}, fmt.Errorf("%w: %s is a directory", errkind.ErrIO, path)
	}
	if info.Size() > r.maxBytes {
		return Payload{}, fmt.Errorf("%w: file %s of %d bytes exceeds limit %d", errkind.ErrIO, path, info.Size(), r.maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: read %s: %w", errkind.ErrIO, path, err)
	}

	mediaType := ""
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		if parsed, _, err := mime.ParseMediaType(byExt); err == nil {
			mediaType = parsed
		}
	}
	return Payload{Data: data, MediaType: mediaType}, nil
}

func (r *Resolver) readNote(ctx context.Context, id string) (Payload, error) {
	if r.notes == nil {
		return Payload{}, fmt.Errorf("%w: note references are not available", errkind.ErrInvalid)
	}
	note, err := r.notes.GetNote(ctx, id)
	if err != nil {
		return Payload{}, fmt.Errorf("resolve note %s: %w", id, err)
	}
	return Payload{Data: []byte(note.Content), MediaType: noteMediaType}, nil
}
