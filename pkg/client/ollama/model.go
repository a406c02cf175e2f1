package ollama

import "strings"

type OllamaModel struct {
	Name string `json:"name"`

	// Vision indicates whether the model accepts images.
	Vision bool `json:"vision"`

	// Context is the context window in tokens.
	Context int `json:"context"`
}

// List must be kept in sync with https://ollama.com/search by hand.
var ollamaModels = []OllamaModel{
	{Name: "llava", Vision: true, Context: 4096},
	{Name: "llama3.2-vision", Vision: true, Context: 128000},
	{Name: "gemma3", Vision: true, Context: 128000},
	{Name: "qwen2.5vl", Vision: true, Context: 128000},
	{Name: "llama3.2", Vision: false, Context: 128000},
	{Name: "qwen2.5", Vision: false, Context: 32768},
	{Name: "gpt-oss", Vision: false, Context: 128000},
}

const (
	defaultVisionModel = "llava"
	defaultTextModel   = "llama3.2"
)

// lookupModel matches on the longest known name contained in model, so
// "llama3.2-vision:11b" resolves to llama3.2-vision rather than llama3.2.
func lookupModel(model string) (OllamaModel, bool) {
	modelLower := strings.ToLower(model)
	var best OllamaModel
	found := false
	for _, m := range ollamaModels {
		if strings.Contains(modelLower, m.Name) && len(m.Name) > len(best.Name) {
			best, found = m, true
		}
	}
	return best, found
}

// IsVisionCapableModel reports whether model is known to accept images.
func IsVisionCapableModel(model string) bool {
	m, ok := lookupModel(model)
	return ok && m.Vision
}

// IsModelInKnownList reports whether model matches a known entry.
func IsModelInKnownList(model string) bool {
	_, ok := lookupModel(model)
	return ok
}
