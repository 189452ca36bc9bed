package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	httpTimeoutEnvKey  = "NOTESEC_HTTP_TIMEOUT"
	apiTokenEnvKey     = "NOTESEC_API_TOKEN"
)

// Client is a simple HTTP client for the notesec API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
		http:    &http.Client{Timeout: httpTimeoutFromEnv()},
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// LoadConversation returns every message payload of a conversation in order.
func (c *Client) LoadConversation(ctx context.Context, conversationID string) ([]json.RawMessage, error) {
	var resp []json.RawMessage
	err := c.do(ctx, http.MethodGet, conversationPath(conversationID)+"/messages", nil, &resp)
	return resp, err
}

// SaveMessage stores one message at index.
func (c *Client) SaveMessage(ctx context.Context, conversationID string, index uint16, req SaveMessageRequest) (SaveMessageResponse, error) {
	var resp SaveMessageResponse
	path := conversationPath(conversationID) + "/messages/" + strconv.FormatUint(uint64(index), 10)
	err := c.do(ctx, http.MethodPut, path, req, &resp)
	return resp, err
}

// SaveAttachment fills missing slots of an attachment.
func (c *Client) SaveAttachment(ctx context.Context, conversationID string, req SaveAttachmentRequest) (SaveAttachmentResponse, error) {
	var resp SaveAttachmentResponse
	err := c.do(ctx, http.MethodPost, conversationPath(conversationID)+"/attachments", req, &resp)
	return resp, err
}

// ReadAttachment streams one attachment slot to w and returns its content type.
func (c *Client) ReadAttachment(ctx context.Context, conversationID, attachmentID, slot string, w io.Writer) (string, error) {
	path := conversationPath(conversationID) + "/attachments/" + url.PathEscape(attachmentID) + "/" + url.PathEscape(slot)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", decodeError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", err
	}
	return resp.Header.Get("Content-Type"), nil
}

// CreateNote stores a note.
func (c *Client) CreateNote(ctx context.Context, req NoteCreateRequest) (NoteResponse, error) {
	var resp NoteResponse
	err := c.do(ctx, http.MethodPost, "/v1/notes", req, &resp)
	return resp, err
}

// GetNote fetches a note.
func (c *Client) GetNote(ctx context.Context, id string) (NoteResponse, error) {
	var resp NoteResponse
	err := c.do(ctx, http.MethodGet, "/v1/notes/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func conversationPath(conversationID string) string {
	return "/v1/conversations/" + url.PathEscape(conversationID)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
		apiErr.Message = errResp.Error
		return apiErr
	}
	apiErr.Message = fmt.Sprintf("api error: %s", resp.Status)
	return apiErr
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
