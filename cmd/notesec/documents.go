package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// readDocument reads path, or stdin when path is "-".
func readDocument(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// payloadFromDocument turns a JSON or YAML document into a JSON payload.
// Valid JSON is passed through untouched so numbers and key order survive.
func payloadFromDocument(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload document is empty")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed), nil
	}

	var doc any
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("payload is neither JSON nor YAML: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("payload document is empty")
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("payload cannot be represented as JSON: %w", err)
	}
	return json.RawMessage(encoded), nil
}

// noteDocument is a markdown note with optional YAML front matter.
type noteDocument struct {
	ID      string `yaml:"id"`
	Title   string `yaml:"title"`
	Content string `yaml:"-"`
}

func parseNoteMarkdown(input string) (noteDocument, error) {
	doc := noteDocument{Content: input}

	lines := strings.Split(input, "\n")
	if len(lines) >= 2 && strings.TrimSpace(lines[0]) == "---" {
		end := -1
		for i := 1; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "---" {
				end = i
				break
			}
		}
		if end == -1 {
			return noteDocument{}, fmt.Errorf("front matter not closed")
		}
		if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &doc); err != nil {
			return noteDocument{}, fmt.Errorf("front matter: %w", err)
		}
		doc.Content = strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\n")
	}

	if strings.TrimSpace(doc.Title) == "" {
		doc.Title = firstHeading(doc.Content)
	}
	return doc, nil
}

func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if heading, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(heading)
		}
	}
	return ""
}
