package store

import (
	"context"

	"notesec/internal/models"
)

// NoteStore abstracts note storage backends.
type NoteStore interface {
	NoteExists(ctx context.Context, id string) (bool, error)
	CreateNote(ctx context.Context, note *models.Note) error
	GetNote(ctx context.Context, id string) (models.Note, error)
}

var _ NoteStore = (*Store)(nil)
