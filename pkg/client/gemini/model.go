package gemini

import "strings"

const defaultModel = "gemini-2.5-flash-lite"

// knownModels are the Gemini ids accepted as-is.
var knownModels = []string{
	"gemini-2.5-flash-lite",
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
}

// getGeminiModel returns model if it looks like a Gemini id, the default otherwise.
func getGeminiModel(model string) string {
	if model == "" {
		return defaultModel
	}
	for _, m := range knownModels {
		if m == model {
			return model
		}
	}
	if strings.HasPrefix(model, "gemini-") || strings.HasPrefix(model, "models/") {
		return model
	}
	return defaultModel
}
