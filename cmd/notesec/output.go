package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"notesec/internal/api"
	"notesec/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeStructured(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeConversation(payloads []json.RawMessage) error {
	if len(payloads) == 0 {
		return writePlain("no messages\n")
	}
	for i, payload := range payloads {
		if err := writePlain("%d\t%s\n", i, compactJSON(payload)); err != nil {
			return err
		}
	}
	return nil
}

func writeNoteDetail(note api.NoteResponse) error {
	lines := []string{
		fmt.Sprintf("id: %s", note.ID),
		fmt.Sprintf("title: %s", note.Title),
		fmt.Sprintf("created_at: %s", formatTime(note.CreatedAt)),
		fmt.Sprintf("updated_at: %s", formatTime(note.UpdatedAt)),
	}
	if note.Content != "" {
		lines = append(lines, "", note.Content)
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
