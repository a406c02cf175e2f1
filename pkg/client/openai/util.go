package openai

import (
	"fmt"
)

const (
	modelGPT4o     = "gpt-4o"
	modelGPT4oMini = "gpt-4o-mini"
	modelGPT41     = "gpt-4.1"
	modelGPT41Mini = "gpt-4.1-mini"

	defaultVisionModel = modelGPT4o
	defaultTextModel   = modelGPT4oMini
)

// ModelCapabilities describes what an OpenAI chat model accepts.
type ModelCapabilities struct {
	SupportsVision bool
	MaxTokens      int
}

// getModelCapabilities returns the capabilities of a known model, or
// text-only defaults.
func getModelCapabilities(model string) ModelCapabilities {
	switch model {
	case modelGPT4o:
		return ModelCapabilities{SupportsVision: true, MaxTokens: 16384}
	case modelGPT4oMini:
		return ModelCapabilities{SupportsVision: true, MaxTokens: 16384}
	case modelGPT41, modelGPT41Mini:
		return ModelCapabilities{SupportsVision: true, MaxTokens: 32768}
	default:
		return ModelCapabilities{SupportsVision: false, MaxTokens: 4096}
	}
}

// validateModelForCapability checks whether model supports capability.
func validateModelForCapability(model string, capability string) error {
	caps := getModelCapabilities(model)

	switch capability {
	case "vision":
		if !caps.SupportsVision {
			return fmt.Errorf("model %s is not known to support vision", model)
		}
	default:
		return fmt.Errorf("unknown capability %q", capability)
	}
	return nil
}
