// Package container reads, merges and atomically rewrites encrypted
// multi-slot archive files.
//
// A container is a zip archive whose entries (slots) are stored without
// compression and individually sealed with XChaCha20-Poly1305. The archive
// comment carries an optional identity tag used to detect whether a write
// targets the same logical record as the one already on disk.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"notesec/internal/errkind"
)

// Status reports what Write did.
type Status int

const (
	StatusWritten Status = iota + 1
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// WriteOutcome describes one completed Write.
type WriteOutcome struct {
	Status Status
	Path   string
}

// Written reports whether the container on disk was replaced.
func (o WriteOutcome) Written() bool {
	return o.Status == StatusWritten
}

// WriteRequest is the set of changes applied by one Write.
type WriteRequest struct {
	// Updates maps slot names to plaintext. Listed slots replace any prior
	// occupant; every other valid slot of the old container is kept verbatim.
	Updates map[string][]byte
	// Identity is the identity tag to check and record. Empty means the
	// container is not identity-tracked and conflict checks are bypassed.
	Identity string
	// Force skips the identity check entirely.
	Force bool
}

// Codec performs container I/O with a single process-wide key.
type Codec struct {
	key    *Key
	logger *slog.Logger
}

// NewCodec constructs a Codec.
func NewCodec(key *Key, logger *slog.Logger) (*Codec, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: container key is required", errkind.ErrInvalid)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{key: key, logger: logger.With("component", "container")}, nil
}

// Write merges req into the container at path and publishes the result with
// an atomic rename. Readers observe either the old or the new container.
func (c *Codec) Write(ctx context.Context, path string, req WriteRequest) (WriteOutcome, error) {
	var zero WriteOutcome
	if c == nil || c.key == nil {
		return zero, fmt.Errorf("container codec is not configured")
	}
	for name := range req.Updates {
		if !validSlotName(name) {
			return zero, fmt.Errorf("%w: invalid slot name %q", errkind.ErrInvalid, name)
		}
	}
	if err := validateIdentity(req.Identity); err != nil {
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	old, err := openArchive(path)
	switch {
	case errors.Is(err, errkind.ErrNotFound):
		old = nil
	case err != nil:
		return zero, err
	}
	closeOld := func() {
		if old != nil {
			_ = old.Close()
			old = nil
		}
	}
	defer closeOld()

	if old != nil && !req.Force && req.Identity != "" {
		stored := old.identity()
		if stored == req.Identity {
			c.logger.Debug("container unchanged; write skipped", "path", path, "identity", stored)
			return WriteOutcome{Status: StatusSkipped}, nil
		}
		if stored != "" {
			return zero, fmt.Errorf("%w: %s holds %q, write carries %q", errkind.ErrConflict, path, stored, req.Identity)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zero, fmt.Errorf("%w: create %s: %w", errkind.ErrIO, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return zero, fmt.Errorf("%w: create temp for %s: %w", errkind.ErrIO, path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if err := c.build(tmp, old, req); err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return zero, fmt.Errorf("%w: sync %s: %w", errkind.ErrIO, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, fmt.Errorf("%w: close %s: %w", errkind.ErrIO, tmpPath, err)
	}

	closeOld()
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return zero, fmt.Errorf("%w: rename %s: %w", errkind.ErrIO, path, err)
	}

	return WriteOutcome{Status: StatusWritten, Path: path}, nil
}

// The identity lives in the archive comment, which the zip reader scans
// backwards for the end-of-central-directory record.
const (
	maxIdentityLen = 0xFFFF
	eocdSignature  = "PK\x05\x06"
)

func validateIdentity(identity string) error {
	if len(identity) > maxIdentityLen {
		return fmt.Errorf("%w: identity tag is %d bytes, limit is %d", errkind.ErrInvalid, len(identity), maxIdentityLen)
	}
	if strings.Contains(identity, eocdSignature) {
		return fmt.Errorf("%w: identity tag contains a zip directory signature", errkind.ErrInvalid)
	}
	return nil
}

func (c *Codec) build(w io.Writer, old *archive, req WriteRequest) error {
	aw := newArchiveWriter(w, c.key)

	identity := req.Identity
	if old != nil {
		if identity == "" {
			identity = old.identity()
		}
		for _, f := range old.zr.File {
			if _, replaced := req.Updates[f.Name]; replaced {
				continue
			}
			if _, done := aw.written[f.Name]; done {
				continue
			}
			if !validSlotName(f.Name) {
				c.logger.Debug("dropping foreign entry", "entry", f.Name)
				continue
			}
			if err := aw.CopyVerbatim(f); err != nil {
				return err
			}
			c.logger.Debug("slot copied verbatim", "slot", f.Name)
		}
	}

	names := make([]string, 0, len(req.Updates))
	for name := range req.Updates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := aw.WritePlain(name, req.Updates[name]); err != nil {
			return fmt.Errorf("%w: write slot %s: %w", errkind.ErrIO, name, err)
		}
	}

	if identity != "" {
		if err := aw.SetIdentity(identity); err != nil {
			return fmt.Errorf("%w: identity tag: %w", errkind.ErrInvalid, err)
		}
	}
	if err := aw.Close(); err != nil {
		return fmt.Errorf("%w: finalize archive: %w", errkind.ErrIO, err)
	}
	return nil
}

// Read decrypts and returns one slot.
func (c *Codec) Read(ctx context.Context, path, slot string) ([]byte, error) {
	if c == nil || c.key == nil {
		return nil, fmt.Errorf("container codec is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	f := a.entry(slot)
	if f == nil {
		return nil, fmt.Errorf("%w: slot %s in %s", errkind.ErrNotFound, slot, path)
	}
	sealed, err := readSealed(f)
	if err != nil {
		return nil, err
	}
	return c.key.open(slot, sealed)
}

// Slots lists the slot names present in the container without decrypting.
func (c *Codec) Slots(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.names(), nil
}

// Identity returns the container's identity tag ("" when untracked).
func (c *Codec) Identity(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a, err := openArchive(path)
	if err != nil {
		return "", err
	}
	defer a.Close()
	return a.identity(), nil
}

// RawSlot returns a slot's stored ciphertext exactly as it sits in the archive.
func (c *Codec) RawSlot(ctx context.Context, path, slot string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	f := a.entry(slot)
	if f == nil {
		return nil, fmt.Errorf("%w: slot %s in %s", errkind.ErrNotFound, slot, path)
	}
	rc, err := f.OpenRaw()
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: %w", errkind.ErrCorrupt, slot, err)
	}
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: %w", errkind.ErrCorrupt, slot, err)
	}
	return body, nil
}
