package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/fpt/go-echoassist/pkg/client/core"
	"github.com/fpt/go-echoassist/pkg/domain"
)

// DefaultOverrides leave local models nearly unthrottled.
var DefaultOverrides = domain.ProviderOverrides{
	MinRequestInterval: domain.Duration(100 * time.Millisecond),
	MaxDailyTokens:     domain.Int(100_000_000),
}

// OllamaCore holds the API client for a local Ollama server.
type OllamaCore struct {
	client      *api.Client
	visionModel string
	textModel   string
}

// OllamaClient is the local model provider. Its credential is the server URL.
type OllamaClient struct {
	*OllamaCore
	*core.Service
}

var _ domain.Provider = (*OllamaClient)(nil)

// NewOllamaClient builds the provider against opts.BaseURL.
func NewOllamaClient(opts core.ProviderOptions) (*OllamaClient, error) {
	if opts.BaseURL == "" {
		return nil, core.MissingCredential(domain.ProviderOllama, "OLLAMA_HOST")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &domain.ConfigurationError{Provider: domain.ProviderOllama, Message: "invalid OLLAMA_HOST " + opts.BaseURL, Err: err}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	cfg := domain.MergeProviderConfig(domain.BaseProviderConfig(domain.ProviderOllama), DefaultOverrides, opts.Overrides)
	c := &OllamaClient{
		OllamaCore: &OllamaCore{
			client:      api.NewClient(base, httpClient),
			visionModel: orDefault(opts.VisionModel, defaultVisionModel),
			textModel:   orDefault(opts.TextModel, defaultTextModel),
		},
		Service: core.NewService(cfg, opts),
	}
	if !IsVisionCapableModel(c.visionModel) {
		c.Logger.Warn("vision model is not known to accept images", "model", c.visionModel)
	}
	return c, nil
}

func (c *OllamaClient) ProviderInfo() domain.ProviderInfo {
	return c.Info(c.visionModel, c.textModel)
}

func (c *OllamaClient) AnalyzeScreenshot(ctx context.Context, image domain.ImageData, extra string) (string, error) {
	prompt, err := c.ScreenshotPrompt(extra)
	if err != nil {
		return "", err
	}
	parts := []domain.Part{domain.TextPart(prompt.UserText()), domain.ImagePart(image)}
	result, err := c.chat(ctx, c.visionModel, prompt.SystemOr(domain.DefaultMultimodalSystemPrompt), parts, domain.GenerateOptions{}, domain.DefaultMultimodalMaxTokens)
	if err != nil {
		return "", err
	}
	c.RecordScreenshot(result)
	return result, nil
}

func (c *OllamaClient) GenerateText(ctx context.Context, prompt domain.Prompt, opts domain.GenerateOptions) (string, error) {
	model := c.textModel
	if opts.UseVisionModel {
		model = c.visionModel
	}
	parts := []domain.Part{domain.TextPart(prompt.UserText())}
	return c.chat(ctx, model, prompt.SystemOr(domain.DefaultTextSystemPrompt), parts, opts, domain.DefaultTextMaxTokens)
}

func (c *OllamaClient) GenerateMultimodal(ctx context.Context, parts []domain.Part, opts domain.GenerateOptions) (string, error) {
	return c.chat(ctx, c.visionModel, domain.DefaultMultimodalSystemPrompt, parts, opts, domain.DefaultMultimodalMaxTokens)
}

func (c *OllamaClient) chat(ctx context.Context, model, system string, parts []domain.Part, opts domain.GenerateOptions, defaultMax int) (string, error) {
	user := api.Message{Role: "user", Content: domain.PartsText(parts)}
	for _, p := range parts {
		if p.IsImage() {
			user.Images = append(user.Images, api.ImageData(p.Image.Data))
		}
	}

	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: []api.Message{{Role: "system", Content: system}, user},
		Stream:   &stream,
		Options: map[string]any{
			"temperature": opts.TemperatureOrDefault(),
			"num_predict": opts.MaxTokensOr(defaultMax),
		},
	}

	estimate := core.EstimateTokens(system + user.Content)
	return c.Call(ctx, estimate, func(ctx context.Context) (core.Completion, error) {
		var out core.Completion
		err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			out.Text += resp.Message.Content
			if resp.Done {
				out.UsedTokens = resp.PromptEvalCount + resp.EvalCount
			}
			return nil
		})
		if err != nil {
			return core.Completion{}, core.WrapProviderError(domain.ProviderOllama, statusOf(err), err)
		}
		return out, nil
	})
}

func statusOf(err error) int {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
