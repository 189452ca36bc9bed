package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"notesec/internal/api"
	"notesec/internal/errkind"
)

const (
	defaultJSONMaxBody    = 8 << 20   // 8 MiB
	attachmentJSONMaxBody = 160 << 20 // inline data URIs up to the resolver limit
)

func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	code := errorCode(status, err)
	numericCode := errorNumericCode(status, err)
	message := err.Error()

	attrs := []slog.Attr{
		slog.Int("status", status),
		slog.String("code", code),
		slog.Int("error_code", numericCode),
		slog.Any("error", err),
	}
	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
		attrs = append(attrs, slog.String("method", r.Method), slog.String("path", r.URL.Path))
	}
	s.log().LogAttrs(ctx, requestLogLevel(status), "request failed", attrs...)
	if status >= 500 {
		// Storage paths and crypto details stay in the server log.
		message = "internal error"
	}

	s.writeJSON(w, status, api.ErrorResponse{Error: message, Code: code, ErrorCode: numericCode})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}

type apiError struct {
	status  int
	code    string
	errCode int
	err     error
}

func (e apiError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error {
	return e.err
}

func makeAPIError(status int, code string, errCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	var existing apiError
	if errors.As(err, &existing) {
		if existing.status != 0 {
			return existing
		}
	}

	return apiError{status: status, code: code, errCode: errCode, err: err}
}

func badRequestCode(err error, code int) error {
	return makeAPIError(http.StatusBadRequest, "invalid_argument", code, err)
}

// kindError maps a storage failure onto an HTTP error. notFoundCode picks
// the numeric code reported for errkind.ErrNotFound.
func kindError(err error, notFoundCode int) error {
	switch kind := errkind.Of(err); kind {
	case errkind.KindConflict:
		return makeAPIError(http.StatusConflict, string(kind), ErrCodeConflict, err)
	case errkind.KindNotFound:
		return makeAPIError(http.StatusNotFound, string(kind), notFoundCode, err)
	case errkind.KindDecode:
		return makeAPIError(http.StatusBadRequest, string(kind), ErrCodeDecodeFailed, err)
	case errkind.KindInvalid:
		return makeAPIError(http.StatusBadRequest, "invalid_argument", ErrCodeInvalidArgument, err)
	case errkind.KindParse:
		return makeAPIError(http.StatusInternalServerError, string(kind), ErrCodeParseFailed, err)
	case errkind.KindCorrupt:
		return makeAPIError(http.StatusInternalServerError, string(kind), ErrCodeCorrupt, err)
	case errkind.KindDecryptFailed:
		return makeAPIError(http.StatusInternalServerError, string(kind), ErrCodeDecryptFailed, err)
	case errkind.KindIO:
		return makeAPIError(http.StatusInternalServerError, string(kind), ErrCodeStoreFailure, err)
	default:
		return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeInternal, err)
	}
}

func httpStatusFromError(err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) {
		return apiErr.status
	}
	return http.StatusInternalServerError
}

func errorCode(status int, err error) string {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.code != "" {
		return apiErr.code
	}
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusInternalServerError:
		return "internal"
	default:
		return ""
	}
}

func errorNumericCode(status int, err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.errCode > 0 {
		return apiErr.errCode
	}
	return defaultErrorCodeByStatus(status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func classifyDecodeJSONError(err error) error {
	if err == nil {
		return nil
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return badRequestCode(fmt.Errorf("invalid JSON payload"), ErrCodeInvalidJSON)
	}
	return badRequestCode(err, ErrCodeInvalidJSON)
}

func (s *Server) decodeJSONReq(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) bool {
	if err := decodeJSON(w, r, maxBytes, dst); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyDecodeJSONError(err))
		return false
	}
	return true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, httpStatusFromError(err), err)
}

func requirePathValue(r *http.Request, name string) (string, error) {
	value := strings.TrimSpace(r.PathValue(name))
	if value == "" {
		return "", badRequestCode(fmt.Errorf("%s is required", name), ErrCodeInvalidID)
	}
	return value, nil
}

func (s *Server) pathValueOrBadRequest(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value, err := requirePathValue(r, name)
	if err != nil {
		s.writeServiceError(w, r, err)
		return "", false
	}
	return value, true
}

func parseSequenceIndex(raw string) (uint16, error) {
	index, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 16)
	if err != nil {
		return 0, badRequestCode(fmt.Errorf("invalid message index %q", raw), ErrCodeInvalidIndex)
	}
	return uint16(index), nil
}
