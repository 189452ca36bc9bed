package main

import (
	"context"
	"errors"
	"net"

	"notesec/internal/api"
)

var kindHints = map[string]string{
	"conflict":         "hint: another message is stored at this index; reload the conversation or retry with --force.",
	"not_found":        "hint: check the conversation, attachment or note id.",
	"decode":           "hint: the attachment source could not be decoded; check the data: URI or the file contents.",
	"invalid_argument": "hint: check the ids, index and flags; run with --help for usage.",
	"corrupt":          "hint: a stored container is damaged; restore it from backup or remove it.",
	"decrypt_failed":   "hint: containers did not decrypt; verify NOTESEC_KEY_HEX / NOTESEC_PASSPHRASE match the key they were written with.",
	"parse":            "hint: the conversation directory holds malformed or duplicate message files; inspect it by hand.",
	"io":               "hint: the server could not read or write storage; check NOTESEC_DATA_ROOT permissions and free space.",
	"unauthorized":     "hint: verify NOTESEC_API_TOKEN matches the server.",
}

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if hint, ok := kindHints[api.ErrorKind(err)]; ok {
			lines = append(lines, hint)
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify NOTESEC_API_URL points to a notesec server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase NOTESEC_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a notesec server is running at NOTESEC_API_URL.",
			"hint: start local server manually with: notesec srv",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
