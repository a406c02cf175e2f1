package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpt/go-echoassist/pkg/client/core"
	"github.com/fpt/go-echoassist/pkg/domain"
	"github.com/fpt/go-echoassist/pkg/logger"
)

const messageResponse = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-haiku-20240307",
  "content": [
    {"type": "text", "text": "first"},
    {"type": "tool_use", "id": "tu_1", "name": "lookup", "input": {}},
    {"type": "text", "text": "second"}
  ],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 10, "output_tokens": 5}
}`

type recordedRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type   string `json:"type"`
			Text   string `json:"text"`
			Source struct {
				MediaType string `json:"media_type"`
				Data      string `json:"data"`
			} `json:"source"`
		} `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, status int, body string) (*AnthropicClient, *int32, *recordedRequest) {
	t.Helper()
	var hits int32
	var last recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &last)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, err := NewAnthropicClient(core.ProviderOptions{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Overrides: domain.ProviderOverrides{
			MinRequestInterval: domain.Duration(0),
			MaxRetries:         domain.Int(0),
		},
		Logger: logger.Discard(),
	})
	require.NoError(t, err)
	return client, &hits, &last
}

func TestNewAnthropicClientRequiresKey(t *testing.T) {
	_, err := NewAnthropicClient(core.ProviderOptions{})
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestDefaultsApplied(t *testing.T) {
	client, err := NewAnthropicClient(core.ProviderOptions{APIKey: "k", Logger: logger.Discard()})
	require.NoError(t, err)

	info := client.ProviderInfo()
	assert.Equal(t, "anthropic", client.Name())
	assert.Equal(t, defaultVisionModel, info.VisionModel)
	assert.Equal(t, defaultTextModel, info.TextModel)
	assert.Equal(t, 10_000_000, info.MaxDailyTokens)
	assert.Equal(t, int64(500), info.MinRequestInterval.Milliseconds())
}

func TestGenerateTextConcatenatesTextBlocks(t *testing.T) {
	client, _, last := newTestClient(t, http.StatusOK, messageResponse)

	text, err := client.GenerateText(context.Background(), domain.StructuredPrompt("be brief", "hello"), domain.GenerateOptions{})
	require.NoError(t, err)

	assert.Equal(t, "first\nsecond", text)
	assert.Equal(t, 15, client.ProviderInfo().DailyTokensUsed, "charges input+output tokens")

	assert.Equal(t, defaultTextModel, last.Model)
	assert.Equal(t, domain.DefaultTextMaxTokens, last.MaxTokens)
	require.Len(t, last.System, 1)
	assert.Equal(t, "be brief", last.System[0].Text)
	require.Len(t, last.Messages, 1)
	assert.Equal(t, "hello", last.Messages[0].Content[0].Text)
}

func TestGenerateTextVisionTier(t *testing.T) {
	client, _, last := newTestClient(t, http.StatusOK, messageResponse)

	_, err := client.GenerateText(context.Background(), domain.TextPrompt("hi"), domain.GenerateOptions{UseVisionModel: true})
	require.NoError(t, err)
	assert.Equal(t, defaultVisionModel, last.Model)
}

func TestAnalyzeScreenshotRecordsHistory(t *testing.T) {
	client, _, last := newTestClient(t, http.StatusOK, messageResponse)

	result, err := client.AnalyzeScreenshot(context.Background(), domain.PNG([]byte("png-bytes")), "two sum")
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", result)

	assert.Equal(t, defaultVisionModel, last.Model)
	require.Len(t, last.Messages[0].Content, 2)
	assert.Equal(t, "image", last.Messages[0].Content[0].Type)
	assert.Equal(t, "image/png", last.Messages[0].Content[0].Source.MediaType)
	assert.Contains(t, last.Messages[0].Content[1].Text, "two sum")
	assert.NotEmpty(t, last.System)

	entries := client.History().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.RoleAssistant, entries[0].Role)
	assert.Equal(t, "Screenshot analysis: first\nsecond", entries[0].Content)
}

func TestUnauthorizedIsConfigurationError(t *testing.T) {
	client, hits, _ := newTestClient(t, http.StatusUnauthorized,
		`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)

	_, err := client.GenerateText(context.Background(), domain.TextPrompt("hi"), domain.GenerateOptions{})
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
	assert.Equal(t, 0, client.ProviderInfo().DailyTokensUsed)
}

func TestOverBudgetNeverCallsAPI(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	client, err := NewAnthropicClient(core.ProviderOptions{
		APIKey:    "k",
		BaseURL:   server.URL,
		Overrides: domain.ProviderOverrides{MaxDailyTokens: domain.Int(1)},
		Logger:    logger.Discard(),
	})
	require.NoError(t, err)

	_, err = client.GenerateText(context.Background(), domain.TextPrompt("a prompt well over one token"), domain.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrBudgetExceeded)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestClampMaxTokens(t *testing.T) {
	assert.Equal(t, 4096, clampMaxTokens("claude-3-haiku-20240307", 8000))
	assert.Equal(t, 2048, clampMaxTokens("claude-sonnet-4-20250514", 2048))
	assert.Equal(t, 4096, clampMaxTokens("claude-unknown", 9999))
}
