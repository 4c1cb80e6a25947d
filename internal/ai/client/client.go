package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hostwise/nightly/internal/ai/domain"
	"go.uber.org/zap"
)

// RequestTimeout is the hard deadline for one provider round-trip.
const RequestTimeout = 45 * time.Second

const completionsPath = "/v1/chat/completions"

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client talks to the LLM provider over its chat-completions API.
type Client struct {
	http *http.Client
	cfg  Config
	log  *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	return &Client{
		http: &http.Client{Timeout: RequestTimeout},
		cfg:  cfg,
		log:  log.Named("ai.client"),
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// CompleteJSON issues one completion and decodes the model output into out.
// Malformed provider output fails with ErrProviderMalformed; it is never
// partially applied.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0.2,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + completionsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("ai.provider_error",
			zap.Int("status", resp.StatusCode),
			zap.Int("body_bytes", len(payload)),
		)
		return fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderMalformed, err)
	}
	if len(parsed.Choices) == 0 {
		return fmt.Errorf("%w: empty choices", domain.ErrProviderMalformed)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	decoder := json.NewDecoder(strings.NewReader(content))
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderMalformed, err)
	}
	return nil
}
