package container

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"notesec/internal/errkind"
)

// archive is an opened container on disk.
type archive struct {
	file *os.File
	zr   *zip.Reader
}

// openArchive opens the container at path. A missing file is reported as
// errkind.ErrNotFound; anything that does not parse as a zip is corrupt.
func openArchive(path string) (*archive, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: container %s", errkind.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %w", errkind.ErrIO, path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", errkind.ErrIO, path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", errkind.ErrCorrupt, path)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %w", errkind.ErrCorrupt, path, err)
	}
	return &archive{file: f, zr: zr}, nil
}

func (a *archive) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	return a.file.Close()
}

func (a *archive) identity() string {
	return a.zr.Comment
}

// entry returns the first entry named name.
func (a *archive) entry(name string) *zip.File {
	for _, f := range a.zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (a *archive) names() []string {
	seen := make(map[string]struct{}, len(a.zr.File))
	out := make([]string, 0, len(a.zr.File))
	for _, f := range a.zr.File {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		out = append(out, f.Name)
	}
	return out
}

// readSealed returns the stored (still encrypted) body of an entry.
func readSealed(f *zip.File) ([]byte, error) {
	if f.Method != zip.Store {
		return nil, fmt.Errorf("%w: slot %s uses compression method %d", errkind.ErrCorrupt, f.Name, f.Method)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: %w", errkind.ErrCorrupt, f.Name, err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: slot %s: %w", errkind.ErrCorrupt, f.Name, err)
	}
	return body, nil
}

// archiveWriter builds a new container. Slots either come across from an old
// container untouched (CopyVerbatim) or are sealed from plaintext (WritePlain).
type archiveWriter struct {
	zw      *zip.Writer
	key     *Key
	written map[string]struct{}
}

func newArchiveWriter(w io.Writer, key *Key) *archiveWriter {
	return &archiveWriter{zw: zip.NewWriter(w), key: key, written: map[string]struct{}{}}
}

// CopyVerbatim copies the entry's stored bytes without decrypting them.
func (w *archiveWriter) CopyVerbatim(f *zip.File) error {
	if _, ok := w.written[f.Name]; ok {
		return fmt.Errorf("duplicate slot %s", f.Name)
	}
	if err := w.zw.Copy(f); err != nil {
		return fmt.Errorf("%w: copy slot %s: %w", errkind.ErrCorrupt, f.Name, err)
	}
	w.written[f.Name] = struct{}{}
	return nil
}

// WritePlain seals plaintext and stores it uncompressed under name.
func (w *archiveWriter) WritePlain(name string, plaintext []byte) error {
	if _, ok := w.written[name]; ok {
		return fmt.Errorf("duplicate slot %s", name)
	}
	sealed, err := w.key.seal(name, plaintext)
	if err != nil {
		return err
	}
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: time.Now().UTC(),
	}
	dst, err := w.zw.CreateHeader(header)
	if err != nil {
		return err
	}
	if _, err := dst.Write(sealed); err != nil {
		return err
	}
	w.written[name] = struct{}{}
	return nil
}

func (w *archiveWriter) SetIdentity(tag string) error {
	return w.zw.SetComment(tag)
}

func (w *archiveWriter) Close() error {
	return w.zw.Close()
}

func validSlotName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
