package resolver

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"github.com/vincent-petithory/dataurl"

	"notesec/internal/errkind"
)

const (
	defaultDataMediaType = "text/plain"
	base64Marker         = ";base64"
)

// decodeDataURI parses data:[<mediatype>][;base64],<data>. The base64 marker
// matches case-insensitively, and base64 bodies may carry whitespace,
// percent-escapes or missing padding.
func decodeDataURI(raw string) (Payload, error) {
	canonical, err := canonicalDataURI(raw)
	if err != nil {
		return Payload{}, err
	}
	du, err := dataurl.DecodeString(canonical)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: data URI: %w", errkind.ErrDecode, err)
	}

	mediaType := du.MediaType.ContentType()
	if mediaType == "" || mediaType == "/" {
		mediaType = defaultDataMediaType
	}
	return Payload{Data: du.Data, MediaType: strings.ToLower(mediaType)}, nil
}

// canonicalDataURI rewrites raw into the strict form dataurl accepts.
func canonicalDataURI(raw string) (string, error) {
	if !isDataURI(raw) {
		return "", fmt.Errorf("%w: not a data URI", errkind.ErrDecode)
	}
	header, body, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok {
		return "", fmt.Errorf("%w: data URI has no comma separator", errkind.ErrDecode)
	}

	isBase64 := false
	if n := len(header) - len(base64Marker); n >= 0 && strings.EqualFold(header[n:], base64Marker) {
		isBase64 = true
		header = header[:n]
	}
	header, err := canonicalMediaType(header)
	if err != nil {
		return "", err
	}

	if !isBase64 {
		if _, err := url.PathUnescape(body); err != nil {
			return "", fmt.Errorf("%w: data URI payload: %w", errkind.ErrDecode, err)
		}
		return "data:" + header + "," + body, nil
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, body)
	if unescaped, err := url.PathUnescape(cleaned); err == nil {
		cleaned = unescaped
	}
	cleaned = strings.TrimRight(cleaned, "=")
	if _, err := base64.RawStdEncoding.DecodeString(cleaned); err != nil {
		return "", fmt.Errorf("%w: data URI base64 payload: %w", errkind.ErrDecode, err)
	}
	if pad := len(cleaned) % 4; pad != 0 {
		cleaned += strings.Repeat("=", 4-pad)
	}
	return "data:" + header + base64Marker + "," + cleaned, nil
}

// canonicalMediaType fills in the text/plain default, which also covers a
// header holding only parameters (";charset=utf-8").
func canonicalMediaType(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return defaultDataMediaType, nil
	}
	if strings.HasPrefix(header, ";") {
		header = defaultDataMediaType + header
	}
	if _, _, err := mime.ParseMediaType(header); err != nil {
		return "", fmt.Errorf("%w: data URI media type %q: %w", errkind.ErrDecode, header, err)
	}
	return header, nil
}
