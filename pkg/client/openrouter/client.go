package openrouter

import (
	"context"
	"sync"
	"time"

	"github.com/fpt/go-echoassist/pkg/client/core"
	"github.com/fpt/go-echoassist/pkg/client/openai"
	"github.com/fpt/go-echoassist/pkg/domain"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultSiteURL = "https://github.com/echo-assist"
	DefaultAppName = "EchoAssist AI Assistant"
)

// DefaultOverrides reflect OpenRouter's generous gateway limits.
var DefaultOverrides = domain.ProviderOverrides{
	MinRequestInterval: domain.Duration(200 * time.Millisecond),
	MaxDailyTokens:     domain.Int(50_000_000),
}

// OpenRouterClient talks to the OpenRouter gateway through the
// OpenAI-compatible chat completions API.
type OpenRouterClient struct {
	*openai.OpenAICore
	*core.Service

	mu          sync.RWMutex
	visionModel string
	textModel   string
}

var _ domain.Provider = (*OpenRouterClient)(nil)

// NewOpenRouterClient builds the provider. The API key is mandatory.
func NewOpenRouterClient(opts core.ProviderOptions) (*OpenRouterClient, error) {
	if opts.APIKey == "" {
		return nil, core.MissingCredential(domain.ProviderOpenRouter, "OPENROUTER_API_KEY")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	siteURL := opts.SiteURL
	if siteURL == "" {
		siteURL = DefaultSiteURL
	}
	appName := opts.AppName
	if appName == "" {
		appName = DefaultAppName
	}

	cfg := domain.MergeProviderConfig(domain.BaseProviderConfig(domain.ProviderOpenRouter), DefaultOverrides, opts.Overrides)
	c := &OpenRouterClient{
		OpenAICore: openai.NewOpenAICore(openai.CoreConfig{
			Provider: domain.ProviderOpenRouter,
			APIKey:   opts.APIKey,
			BaseURL:  baseURL,
			Headers: map[string]string{
				"HTTP-Referer": siteURL,
				"X-Title":      appName,
			},
			HTTPClient: opts.HTTPClient,
		}),
		Service:     core.NewService(cfg, opts),
		visionModel: defaultVisionModel,
		textModel:   defaultTextModel,
	}
	if opts.VisionModel != "" {
		c.visionModel = resolveModel(VisionModels, opts.VisionModel)
	}
	if opts.TextModel != "" {
		c.textModel = resolveModel(TextModels, opts.TextModel)
	}

	c.Logger.Info("OpenRouter initialized", "vision_model", c.visionModel, "text_model", c.textModel)
	return c, nil
}

// SetVisionModel switches the vision tier. Preset aliases are accepted.
func (c *OpenRouterClient) SetVisionModel(model string) {
	c.mu.Lock()
	c.visionModel = resolveModel(VisionModels, model)
	c.mu.Unlock()
	c.Logger.Info("vision model changed", "model", c.models().vision)
}

// SetTextModel switches the text tier. Preset aliases are accepted.
func (c *OpenRouterClient) SetTextModel(model string) {
	c.mu.Lock()
	c.textModel = resolveModel(TextModels, model)
	c.mu.Unlock()
	c.Logger.Info("text model changed", "model", c.models().text)
}

type modelPair struct{ vision, text string }

func (c *OpenRouterClient) models() modelPair {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return modelPair{vision: c.visionModel, text: c.textModel}
}

func (c *OpenRouterClient) ProviderInfo() domain.ProviderInfo {
	m := c.models()
	return c.Info(m.vision, m.text)
}

func (c *OpenRouterClient) AnalyzeScreenshot(ctx context.Context, image domain.ImageData, extra string) (string, error) {
	prompt, err := c.ScreenshotPrompt(extra)
	if err != nil {
		return "", err
	}
	parts := []domain.Part{domain.TextPart(prompt.UserText()), domain.ImagePart(image)}
	result, err := c.run(ctx, c.models().vision, prompt.SystemOr(domain.DefaultMultimodalSystemPrompt), parts, domain.GenerateOptions{}, domain.DefaultMultimodalMaxTokens)
	if err != nil {
		return "", err
	}
	c.RecordScreenshot(result)
	return result, nil
}

func (c *OpenRouterClient) GenerateText(ctx context.Context, prompt domain.Prompt, opts domain.GenerateOptions) (string, error) {
	m := c.models()
	model := m.text
	if opts.UseVisionModel {
		model = m.vision
	}
	parts := []domain.Part{domain.TextPart(prompt.UserText())}
	return c.run(ctx, model, prompt.SystemOr(domain.DefaultTextSystemPrompt), parts, opts, domain.DefaultTextMaxTokens)
}

func (c *OpenRouterClient) GenerateMultimodal(ctx context.Context, parts []domain.Part, opts domain.GenerateOptions) (string, error) {
	return c.run(ctx, c.models().vision, domain.DefaultMultimodalSystemPrompt, parts, opts, domain.DefaultMultimodalMaxTokens)
}

func (c *OpenRouterClient) run(ctx context.Context, model, system string, parts []domain.Part, opts domain.GenerateOptions, defaultMax int) (string, error) {
	estimate := core.EstimateTokens(system + domain.PartsText(parts))
	return c.Call(ctx, estimate, func(ctx context.Context) (core.Completion, error) {
		return c.Complete(ctx, model, system, parts, opts, defaultMax)
	})
}
