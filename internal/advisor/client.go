// Package advisor talks to the remote advisory chat service.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/jobpt/internal/domain"
)

// ChatMessage is one entry of the outbound message list.
type ChatMessage = domain.ChatTurn

// ProbeContent is the user message sent by a connectivity probe.
const ProbeContent = "connection test"

// Client is the remote advisory collaborator.
type Client interface {
	// Chat sends the conversation and returns the reply text. An empty reply is
	// not an error.
	Chat(ctx context.Context, messages []ChatMessage) (string, error)

	// Probe issues a lightweight request and reports whether the service
	// answered with a success status.
	Probe(ctx context.Context) error
}

type chatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type chatResponse struct {
	Reply   string `json:"reply"`
	Message string `json:"message"`
}

// HTTPClient implements Client over POST {baseURL}/chat.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *HTTPClient) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHTTPClient creates a client for the service at baseURL. Deadlines come
// from the caller's context; the http.Client timeout is only a backstop.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	h := &HTTPClient{
		endpoint: strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/chat",
		client:   &http.Client{Timeout: 2 * time.Minute},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Endpoint returns the chat URL requests are sent to.
func (h *HTTPClient) Endpoint() string { return h.endpoint }

// Chat implements Client. The reply is taken from "reply", falling back to the
// legacy "message" key.
func (h *HTTPClient) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	body, err := h.post(ctx, messages)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode advisor response: %w", err)
	}
	if resp.Reply != "" {
		return resp.Reply, nil
	}
	return resp.Message, nil
}

// Probe implements Client. Any 2xx status counts as reachable.
func (h *HTTPClient) Probe(ctx context.Context) error {
	_, err := h.post(ctx, []ChatMessage{{Role: domain.RoleUser, Content: ProbeContent}})
	return err
}

func (h *HTTPClient) post(ctx context.Context, messages []ChatMessage) ([]byte, error) {
	payload, err := json.Marshal(chatRequest{Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		h.logger.Debug("Advisor returned non-success status",
			"status", res.StatusCode, "duration", time.Since(start))
		return nil, &StatusError{Code: res.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	h.logger.Debug("Advisor request completed",
		"status", res.StatusCode, "messages", len(messages), "duration", time.Since(start))
	return body, nil
}
