package openai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/fpt/go-echoassist/pkg/client/core"
	"github.com/fpt/go-echoassist/pkg/domain"
)

// DefaultOverrides are the limits OpenAI runs with unless the user says otherwise.
var DefaultOverrides = domain.ProviderOverrides{
	MinRequestInterval: domain.Duration(500 * time.Millisecond),
	MaxDailyTokens:     domain.Int(10_000_000),
}

// OpenAICore wraps a chat-completions client. OpenRouter shares it through
// a different base URL.
type OpenAICore struct {
	client   openai.Client
	provider string
}

// CoreConfig configures NewOpenAICore.
type CoreConfig struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Headers    map[string]string
	HTTPClient *http.Client
}

// NewOpenAICore creates the SDK client. SDK retries are disabled so the
// provider's retry policy is the only one in play.
func NewOpenAICore(cfg CoreConfig) *OpenAICore {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAICore{
		client:   openai.NewClient(opts...),
		provider: cfg.Provider,
	}
}

// Complete performs one chat completion and reports total_tokens as usage.
func (c *OpenAICore) Complete(ctx context.Context, model, system string, parts []domain.Part, opts domain.GenerateOptions, defaultMaxTokens int) (core.Completion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, userMessage(parts))

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    messages,
		MaxTokens:   openai.Int(int64(opts.MaxTokensOr(defaultMaxTokens))),
		Temperature: openai.Float(opts.TemperatureOrDefault()),
	})
	if err != nil {
		return core.Completion{}, core.WrapProviderError(c.provider, statusOf(err), err)
	}

	var text string
	if len(completion.Choices) > 0 {
		text = completion.Choices[0].Message.Content
	}
	return core.Completion{Text: text, UsedTokens: int(completion.Usage.TotalTokens)}, nil
}

// userMessage sends a plain string when there are no images.
func userMessage(parts []domain.Part) openai.ChatCompletionMessageParamUnion {
	hasImage := false
	for _, p := range parts {
		if p.IsImage() {
			hasImage = true
			break
		}
	}
	if !hasImage {
		return openai.UserMessage(domain.PartsText(parts))
	}

	content := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		if p.IsImage() {
			content = append(content, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL:    p.Image.DataURL(),
				Detail: "high",
			}))
			continue
		}
		if p.Text != "" {
			content = append(content, openai.TextContentPart(p.Text))
		}
	}
	return openai.UserMessage(content)
}

func statusOf(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// OpenAIClient is the OpenAI provider.
type OpenAIClient struct {
	*OpenAICore
	*core.Service

	visionModel string
	textModel   string
}

var _ domain.Provider = (*OpenAIClient)(nil)

// NewOpenAIClient builds the provider. The API key is mandatory.
func NewOpenAIClient(opts core.ProviderOptions) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, core.MissingCredential(domain.ProviderOpenAI, "OPENAI_API_KEY")
	}

	cfg := domain.MergeProviderConfig(domain.BaseProviderConfig(domain.ProviderOpenAI), DefaultOverrides, opts.Overrides)
	c := &OpenAIClient{
		OpenAICore: NewOpenAICore(CoreConfig{
			Provider:   domain.ProviderOpenAI,
			APIKey:     opts.APIKey,
			BaseURL:    opts.BaseURL,
			HTTPClient: opts.HTTPClient,
		}),
		Service:     core.NewService(cfg, opts),
		visionModel: orDefault(opts.VisionModel, defaultVisionModel),
		textModel:   orDefault(opts.TextModel, defaultTextModel),
	}
	if err := validateModelForCapability(c.visionModel, "vision"); err != nil {
		c.Logger.Warn("vision tier may reject images", "error", err)
	}
	return c, nil
}

func (c *OpenAIClient) ProviderInfo() domain.ProviderInfo {
	return c.Info(c.visionModel, c.textModel)
}

func (c *OpenAIClient) AnalyzeScreenshot(ctx context.Context, image domain.ImageData, extra string) (string, error) {
	prompt, err := c.ScreenshotPrompt(extra)
	if err != nil {
		return "", err
	}
	result, err := c.run(ctx, c.visionModel, prompt.SystemOr(domain.DefaultMultimodalSystemPrompt),
		[]domain.Part{domain.TextPart(prompt.UserText()), domain.ImagePart(image)},
		domain.GenerateOptions{}, domain.DefaultMultimodalMaxTokens)
	if err != nil {
		return "", err
	}
	c.RecordScreenshot(result)
	return result, nil
}

func (c *OpenAIClient) GenerateText(ctx context.Context, prompt domain.Prompt, opts domain.GenerateOptions) (string, error) {
	model := c.textModel
	if opts.UseVisionModel {
		model = c.visionModel
	}
	return c.run(ctx, model, prompt.SystemOr(domain.DefaultTextSystemPrompt), []domain.Part{domain.TextPart(prompt.UserText())}, opts, domain.DefaultTextMaxTokens)
}

func (c *OpenAIClient) GenerateMultimodal(ctx context.Context, parts []domain.Part, opts domain.GenerateOptions) (string, error) {
	return c.run(ctx, c.visionModel, domain.DefaultMultimodalSystemPrompt, parts, opts, domain.DefaultMultimodalMaxTokens)
}

func (c *OpenAIClient) run(ctx context.Context, model, system string, parts []domain.Part, opts domain.GenerateOptions, defaultMax int) (string, error) {
	estimate := core.EstimateTokens(system + domain.PartsText(parts))
	return c.Call(ctx, estimate, func(ctx context.Context) (core.Completion, error) {
		return c.Complete(ctx, model, system, parts, opts, defaultMax)
	})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
