package domain

import (
	"context"
	"time"
)

// Provider is one model-serving backend. Each implementation owns its own
// rate limiter, token ledger and conversation history.
type Provider interface {
	Name() string

	// AnalyzeScreenshot runs the vision tier over a captured screen with
	// optional free-text context and records the result in history.
	AnalyzeScreenshot(ctx context.Context, image ImageData, context string) (string, error)

	GenerateText(ctx context.Context, prompt Prompt, opts GenerateOptions) (string, error)

	GenerateMultimodal(ctx context.Context, parts []Part, opts GenerateOptions) (string, error)

	ProviderInfo() ProviderInfo

	History() ConversationLog
}

// ProviderInfo is a usage snapshot of one provider.
type ProviderInfo struct {
	Name               string        `json:"name"`
	VisionModel        string        `json:"vision_model"`
	TextModel          string        `json:"text_model"`
	DailyTokensUsed    int           `json:"daily_tokens_used"`
	MaxDailyTokens     int           `json:"max_daily_tokens"`
	WindowStart        time.Time     `json:"window_start"`
	MinRequestInterval time.Duration `json:"min_request_interval"`
	MaxRetries         int           `json:"max_retries"`
	HistoryLength      int           `json:"history_length"`
	Serialized         bool          `json:"serialized"`
	QueueLength        int           `json:"queue_length"`
	IsActive           bool          `json:"is_active"`
}

// RemainingTokens reports how much of today's budget is left.
func (p ProviderInfo) RemainingTokens() int {
	if r := p.MaxDailyTokens - p.DailyTokensUsed; r > 0 {
		return r
	}
	return 0
}
