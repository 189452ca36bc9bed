package store

import (
	"fmt"

	"github.com/google/uuid"
)

const idMaxAttempts = 20

// GenerateNoteID returns a fresh note id. It retries on collisions using the
// provided exists function.
func GenerateNoteID(exists func(string) (bool, error)) (string, error) {
	for i := 0; i < idMaxAttempts; i++ {
		id := uuid.NewString()
		if exists == nil {
			return id, nil
		}
		ok, err := exists(id)
		if err != nil {
			return "", err
		}
		if !ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("unable to generate unique id")
}
