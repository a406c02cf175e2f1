package anthropic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fpt/go-echoassist/pkg/client/core"
	"github.com/fpt/go-echoassist/pkg/domain"
)

// DefaultOverrides are the limits Claude runs with unless the user says otherwise.
var DefaultOverrides = domain.ProviderOverrides{
	MinRequestInterval: domain.Duration(500 * time.Millisecond),
	MaxDailyTokens:     domain.Int(10_000_000),
}

// AnthropicCore holds the SDK client and model tiers.
type AnthropicCore struct {
	client      anthropic.Client
	visionModel string
	textModel   string
}

// AnthropicClient is the Claude provider.
type AnthropicClient struct {
	*AnthropicCore
	*core.Service
}

var _ domain.Provider = (*AnthropicClient)(nil)

// NewAnthropicClient builds the provider. The API key is mandatory.
func NewAnthropicClient(opts core.ProviderOptions) (*AnthropicClient, error) {
	if opts.APIKey == "" {
		return nil, core.MissingCredential(domain.ProviderAnthropic, "ANTHROPIC_API_KEY")
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	coreRes := &AnthropicCore{
		client:      anthropic.NewClient(reqOpts...),
		visionModel: firstNonEmpty(opts.VisionModel, defaultVisionModel),
		textModel:   firstNonEmpty(opts.TextModel, defaultTextModel),
	}

	cfg := domain.MergeProviderConfig(domain.BaseProviderConfig(domain.ProviderAnthropic), DefaultOverrides, opts.Overrides)
	return &AnthropicClient{
		AnthropicCore: coreRes,
		Service:       core.NewService(cfg, opts),
	}, nil
}

func (c *AnthropicClient) ProviderInfo() domain.ProviderInfo {
	return c.Info(c.visionModel, c.textModel)
}

func (c *AnthropicClient) AnalyzeScreenshot(ctx context.Context, image domain.ImageData, extra string) (string, error) {
	prompt, err := c.ScreenshotPrompt(extra)
	if err != nil {
		return "", err
	}

	parts := []domain.Part{domain.ImagePart(image), domain.TextPart(prompt.UserText())}
	system := prompt.SystemOr(domain.DefaultMultimodalSystemPrompt)
	result, err := c.send(ctx, c.visionModel, system, parts, domain.GenerateOptions{})
	if err != nil {
		return "", err
	}
	c.RecordScreenshot(result)
	return result, nil
}

func (c *AnthropicClient) GenerateText(ctx context.Context, prompt domain.Prompt, opts domain.GenerateOptions) (string, error) {
	model := c.textModel
	if opts.UseVisionModel {
		model = c.visionModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = domain.DefaultTextMaxTokens
	}
	system := prompt.SystemOr(domain.DefaultTextSystemPrompt)
	return c.send(ctx, model, system, []domain.Part{domain.TextPart(prompt.UserText())}, opts)
}

func (c *AnthropicClient) GenerateMultimodal(ctx context.Context, parts []domain.Part, opts domain.GenerateOptions) (string, error) {
	return c.send(ctx, c.visionModel, domain.DefaultMultimodalSystemPrompt, parts, opts)
}

func (c *AnthropicClient) send(ctx context.Context, model, system string, parts []domain.Part, opts domain.GenerateOptions) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(clampMaxTokens(model, opts.MaxTokensOr(domain.DefaultMultimodalMaxTokens))),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(toContentBlocks(parts)...)},
		Temperature: anthropic.Float(opts.TemperatureOrDefault()),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	estimate := core.EstimateTokens(system + domain.PartsText(parts))
	return c.Call(ctx, estimate, func(ctx context.Context) (core.Completion, error) {
		msg, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return core.Completion{}, core.WrapProviderError(domain.ProviderAnthropic, statusOf(err), err)
		}
		return core.Completion{
			Text:       extractText(msg),
			UsedTokens: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		}, nil
	})
}

func toContentBlocks(parts []domain.Part) []anthropic.ContentBlockParamUnion {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(parts))
	for _, p := range parts {
		if p.IsImage() {
			blocks = append(blocks, anthropic.NewImageBlockBase64(firstNonEmpty(p.Image.MIMEType, "image/png"), p.Image.Base64()))
			continue
		}
		if p.Text != "" {
			blocks = append(blocks, anthropic.NewTextBlock(p.Text))
		}
	}
	return blocks
}

// extractText joins the text blocks of a response, skipping everything else.
func extractText(msg *anthropic.Message) string {
	var texts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func statusOf(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
