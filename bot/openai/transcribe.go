package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dsprep/prepbot/core/logger"
)

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe converts a Telegram voice note (OGG/Opus) to text.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", "audio.oga")
	if err != nil {
		return "", fmt.Errorf("openai: build transcription form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("openai: write audio payload: %w", err)
	}
	if err := form.WriteField("model", c.cfg.TranscribeModel); err != nil {
		return "", fmt.Errorf("openai: write model field: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("openai: finalize transcription form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("openai: build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.decodeError(resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("openai: read transcription response: %w", err)
	}
	var parsed transcribeResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("openai: decode transcription: %w", err)
	}
	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return "", fmt.Errorf("openai: empty transcription text")
	}

	logger.Debug(ctx, "llm", "transcription",
		slog.String("model", c.cfg.TranscribeModel),
		slog.Int("audio_bytes", len(audio)),
		slog.Int("text_len", len(text)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return text, nil
}
