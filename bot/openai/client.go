// Package openai implements a minimal client for OpenAI-compatible
// completion and transcription endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dsprep/prepbot/bot/prompts"
	"github.com/dsprep/prepbot/core/config"
	"github.com/dsprep/prepbot/core/logger"
)

// Client talks to an OpenAI-compatible API. Safe for concurrent use.
type Client struct {
	cfg  config.OpenAIConfig
	http *http.Client
}

func NewClient(cfg config.OpenAIConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// APIError carries the provider's HTTP status and error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openai: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("openai: status %d", e.Status)
}

// Complete sends a blocking chat completion and returns the trimmed reply.
// Messages carrying an image switch the request to the vision model.
func (c *Client) Complete(ctx context.Context, messages []prompts.Message) (string, error) {
	req := chatRequest{
		Model:       c.pickModel(messages),
		Messages:    encodeMessages(messages),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	start := time.Now()
	resp, err := c.postJSON(ctx, "/v1/chat/completions", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.decodeError(resp)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("openai: decode completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in completion response")
	}
	reply := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("openai: empty completion content")
	}

	logger.Debug(ctx, "llm", "completion",
		slog.String("model", req.Model),
		slog.Int("messages", len(messages)),
		slog.Int("reply_len", len(reply)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return reply, nil
}

func (c *Client) pickModel(messages []prompts.Message) string {
	for _, m := range messages {
		if len(m.Image) > 0 {
			return c.cfg.VisionModel
		}
	}
	return c.cfg.Model
}

func encodeMessages(messages []prompts.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		if len(m.Image) == 0 {
			out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
			continue
		}
		dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(m.Image)
		out = append(out, chatMessage{
			Role: string(m.Role),
			Content: []contentPart{
				{Type: "text", Text: m.Content},
				{Type: "image_url", ImageURL: &imageURLPart{URL: dataURL}},
			},
		})
	}
	return out
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return resp, nil
}

func (c *Client) decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var body apiErrorBody
	message := ""
	if json.Unmarshal(data, &body) == nil {
		message = body.Error.Message
	}
	logger.Warn(logger.Background(), "llm", "provider_error",
		slog.Int("status", resp.StatusCode),
		slog.String("message", message))
	return &APIError{Status: resp.StatusCode, Message: message}
}
