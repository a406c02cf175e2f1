package anthropic

import "strings"

const (
	defaultVisionModel = "claude-sonnet-4-20250514"
	defaultTextModel   = "claude-3-haiku-20240307"
)

// ModelCapabilities describes what a Claude model accepts.
type ModelCapabilities struct {
	SupportsVision bool
	MaxTokens      int
}

var knownModels = map[string]ModelCapabilities{
	"claude-sonnet-4-20250514":   {SupportsVision: true, MaxTokens: 64000},
	"claude-opus-4-20250514":     {SupportsVision: true, MaxTokens: 32000},
	"claude-3-7-sonnet-20250219": {SupportsVision: true, MaxTokens: 64000},
	"claude-3-5-sonnet-20241022": {SupportsVision: true, MaxTokens: 8192},
	"claude-3-5-haiku-20241022":  {SupportsVision: true, MaxTokens: 8192},
	"claude-3-haiku-20240307":    {SupportsVision: true, MaxTokens: 4096},
}

// getModelCapabilities falls back to conservative limits for unlisted models.
func getModelCapabilities(model string) ModelCapabilities {
	if caps, ok := knownModels[model]; ok {
		return caps
	}
	return ModelCapabilities{
		SupportsVision: strings.HasPrefix(model, "claude-"),
		MaxTokens:      4096,
	}
}

// clampMaxTokens keeps a request within the model's output ceiling.
func clampMaxTokens(model string, requested int) int {
	if limit := getModelCapabilities(model).MaxTokens; requested > limit {
		return limit
	}
	return requested
}
