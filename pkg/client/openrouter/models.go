package openrouter

import "sort"

// Model presets keyed by short alias.
var (
	VisionModels = map[string]string{
		"claude-3.5-sonnet": "anthropic/claude-3.5-sonnet",
		"gpt-4o":            "openai/gpt-4o",
		"gemini-pro-vision": "google/gemini-pro-1.5",
		"llama-3.2-vision":  "meta-llama/llama-3.2-90b-vision-instruct",
	}
	TextModels = map[string]string{
		"claude-3-haiku": "anthropic/claude-3-haiku",
		"gpt-4o-mini":    "openai/gpt-4o-mini",
		"gemini-flash":   "google/gemini-flash-1.5",
		"llama-3.1-70b":  "meta-llama/llama-3.1-70b-instruct",
		"mistral-large":  "mistralai/mistral-large",
	}
)

const (
	defaultVisionModel = "anthropic/claude-3.5-sonnet"
	defaultTextModel   = "anthropic/claude-3-haiku"
)

// resolveModel maps a preset alias to its model id. Anything else is taken
// as a full OpenRouter id.
func resolveModel(presets map[string]string, name string) string {
	if id, ok := presets[name]; ok {
		return id
	}
	return name
}

// PresetAliases lists the aliases of presets in stable order.
func PresetAliases(presets map[string]string) []string {
	aliases := make([]string, 0, len(presets))
	for alias := range presets {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
