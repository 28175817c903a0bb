package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsprep/prepbot/bot/prompts"
	"github.com/dsprep/prepbot/core/config"
)

func testClient(baseURL string) *Client {
	return NewClient(config.OpenAIConfig{
		APIKey:          "test-key",
		BaseURL:         baseURL,
		Model:           "gpt-3.5-turbo",
		VisionModel:     "gpt-4o",
		TranscribeModel: "whisper-1",
		MaxTokens:       1024,
		Temperature:     0.5,
		TimeoutSeconds:  5,
	})
}

func TestCompleteSendsRequestAndTrimsReply(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"  привет \n"}}]}`)
	}))
	defer srv.Close()

	reply, err := testClient(srv.URL).Complete(context.Background(), []prompts.Message{
		prompts.System("будь краток"),
		prompts.User("поздоровайся"),
	})

	require.NoError(t, err)
	assert.Equal(t, "привет", reply)
	assert.Equal(t, "gpt-3.5-turbo", got["model"])
	assert.Equal(t, float64(1024), got["max_tokens"])
	assert.Equal(t, 0.5, got["temperature"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "будь краток", first["content"])
}

func TestCompleteSwitchesToVisionModelForImages(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"смешно"}}]}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(),
		prompts.MemeImage([]byte{0xff, 0xd8, 0xff}))

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", got["model"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	parts := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	imagePart := parts[1].(map[string]any)
	assert.Equal(t, "image_url", imagePart["type"])
	url := imagePart["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))
}

func TestCompleteEmptyContentIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"   "}}]}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), []prompts.Message{prompts.User("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty completion")
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limit exceeded","type":"requests"}}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Complete(context.Background(), []prompts.Message{prompts.User("hi")})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, "rate limit exceeded", apiErr.Message)
}

func TestCompleteStreamDeliversFragments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, true, req["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{}}]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	var parts []string
	err := testClient(srv.URL).CompleteStream(context.Background(),
		[]prompts.Message{prompts.User("hi")},
		func(fragment string) error {
			parts = append(parts, fragment)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, parts)
}

func TestCompleteStreamStopsOnEmitError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	calls := 0
	err := testClient(srv.URL).CompleteStream(context.Background(),
		[]prompts.Message{prompts.User("hi")},
		func(string) error {
			calls++
			return io.ErrClosedPipe
		})

	require.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Equal(t, 1, calls)
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.oga", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x4f, 0x67, 0x67}, data)

		_, _ = io.WriteString(w, `{"text":" расскажи про графы "}`)
	}))
	defer srv.Close()

	text, err := testClient(srv.URL).Transcribe(context.Background(), []byte{0x4f, 0x67, 0x67})
	require.NoError(t, err)
	assert.Equal(t, "расскажи про графы", text)
}

func TestTranscribeEmptyTextIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text":""}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Transcribe(context.Background(), []byte{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty transcription")
}
