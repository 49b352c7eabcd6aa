// Package api is the REST client for the matchmaking backend. Every call is
// authenticated with the session bearer token except session creation, which
// issues it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"pairchat/internal/models"
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api error: status %d", e.Status)
}

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New creates a client for the API rooted at baseURL (no trailing slash).
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   http.DefaultClient,
	}
}

// NewWithHTTPClient creates a client using a caller-supplied http.Client.
func NewWithHTTPClient(baseURL string, httpc *http.Client) *Client {
	return &Client{baseURL: baseURL, httpc: httpc}
}

// CreateSession registers an anonymous guest and returns its token and ids.
func (c *Client) CreateSession(ctx context.Context, displayName string) (models.SessionResponse, error) {
	var out models.SessionResponse
	body := map[string]string{"display_name": displayName}
	err := c.do(ctx, http.MethodPost, "/session", "", body, &out)
	return out, err
}

// JoinQueue enters the matchmaking queue. The response is either waiting or an
// immediate match carrying the room and partner name.
func (c *Client) JoinQueue(ctx context.Context, token string) (models.QueueResponse, error) {
	var out models.QueueResponse
	err := c.do(ctx, http.MethodPost, "/queue/join", token, nil, &out)
	return out, err
}

// Heartbeat reports the current matchmaking status for a waiting guest.
func (c *Client) Heartbeat(ctx context.Context, token string) (models.HeartbeatResponse, error) {
	var out models.HeartbeatResponse
	err := c.do(ctx, http.MethodPost, "/heartbeat", token, nil, &out)
	return out, err
}

// ListMessages fetches the room's message history, oldest first.
func (c *Client) ListMessages(ctx context.Context, token, roomID string) ([]models.WireMessage, error) {
	var out models.MessagesResponse
	err := c.do(ctx, http.MethodGet, "/rooms/"+roomID+"/messages", token, nil, &out)
	return out.Data, err
}

// SendMessage posts a message body and returns the created message with its
// server-assigned id.
func (c *Client) SendMessage(ctx context.Context, token, roomID, content string) (models.WireMessage, error) {
	var out models.SendMessageResponse
	body := map[string]string{"content": content}
	err := c.do(ctx, http.MethodPost, "/rooms/"+roomID+"/messages", token, body, &out)
	return out.Data, err
}

// LeaveRoom tells the backend the guest is leaving the room.
func (c *Client) LeaveRoom(ctx context.Context, token, roomID string) error {
	return c.do(ctx, http.MethodPost, "/rooms/"+roomID+"/leave", token, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		var failure struct {
			Message string `json:"message"`
			ErrMsg  string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil {
			if failure.Message != "" {
				apiErr.Message = failure.Message
			} else {
				apiErr.Message = failure.ErrMsg
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
