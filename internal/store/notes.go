package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"notesec/internal/errkind"
	"notesec/internal/models"
)

// NoteExists checks whether a note exists by id.
func (s *Store) NoteExists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM notes WHERE id = ? LIMIT 1", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateNote inserts a note. A missing id or timestamps are filled in.
func (s *Store) CreateNote(ctx context.Context, note *models.Note) error {
	if note == nil {
		return fmt.Errorf("%w: note is required", errkind.ErrInvalid)
	}
	note.Title = strings.TrimSpace(note.Title)
	if note.Title == "" {
		return fmt.Errorf("%w: note title is required", errkind.ErrInvalid)
	}
	if note.ID == "" {
		id, err := GenerateNoteID(func(candidate string) (bool, error) {
			return s.NoteExists(ctx, candidate)
		})
		if err != nil {
			return err
		}
		note.ID = id
	}
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = note.CreatedAt
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (id, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		note.ID, note.Title, note.Content, formatTime(note.CreatedAt), formatTime(note.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: note %s already exists", errkind.ErrConflict, note.ID)
		}
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// GetNote loads a note. Unknown ids fail with errkind.ErrNotFound.
func (s *Store) GetNote(ctx context.Context, id string) (models.Note, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, title, content, created_at, updated_at FROM notes WHERE id = ?", id)

	var note models.Note
	var createdAt, updatedAt string
	if err := row.Scan(&note.ID, &note.Title, &note.Content, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Note{}, fmt.Errorf("%w: note %s", errkind.ErrNotFound, id)
		}
		return models.Note{}, err
	}

	var err error
	if note.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Note{}, fmt.Errorf("note %s created_at: %w", id, err)
	}
	if note.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Note{}, fmt.Errorf("note %s updated_at: %w", id, err)
	}
	return note, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}
