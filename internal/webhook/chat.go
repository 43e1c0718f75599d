package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrUnexpectedStatus is returned for any non-2xx webhook reply
var ErrUnexpectedStatus = errors.New("webhook returned unexpected status")

type chatRequest struct {
	ChatInput string `json:"chatInput"`
	SessionID string `json:"sessionId"`
}

// ChatClient posts visitor messages to the remote chat webhook
type ChatClient struct {
	url    string
	client *http.Client
}

// NewChatClient creates a chat webhook client. The HTTP client carries no
// timeout; a reply lasts as long as the request context allows.
func NewChatClient(url string, httpClient *http.Client) *ChatClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &ChatClient{url: url, client: httpClient}
}

// Send posts the message and returns the reply body for incremental reading.
// The caller must close it.
func (c *ChatClient) Send(ctx context.Context, chatInput, sessionID string) (io.ReadCloser, error) {
	body, err := json.Marshal(chatRequest{ChatInput: chatInput, SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson, application/json, text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return resp.Body, nil
}
