package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dsprep/prepbot/bot/prompts"
	"github.com/dsprep/prepbot/core/logger"
)

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// CompleteStream sends a streaming chat completion and delivers content
// fragments through emit as server-sent events arrive. A non-nil error
// from emit aborts the stream.
func (c *Client) CompleteStream(ctx context.Context, messages []prompts.Message, emit func(fragment string) error) error {
	req := chatRequest{
		Model:       c.pickModel(messages),
		Messages:    encodeMessages(messages),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Stream:      true,
	}

	start := time.Now()
	resp, err := c.postJSON(ctx, "/v1/chat/completions", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.decodeError(resp)
	}

	var fragments, bytes int
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			break
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("openai: decode stream chunk: %w", err)
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			fragments++
			bytes += len(choice.Delta.Content)
			if err := emit(choice.Delta.Content); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("openai: read stream: %w", err)
	}

	logger.Debug(ctx, "llm", "stream_done",
		slog.String("model", req.Model),
		slog.Int("fragments", fragments),
		slog.Int("bytes", bytes),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}
