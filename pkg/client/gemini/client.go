package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/fpt/go-echoassist/pkg/client/core"
	"github.com/fpt/go-echoassist/pkg/domain"
)

// DefaultOverrides match the free-tier quota: ten requests a minute.
var DefaultOverrides = domain.ProviderOverrides{
	MinRequestInterval: domain.Duration(6000 * time.Millisecond),
	MaxDailyTokens:     domain.Int(4_000_000),
}

// GeminiCore holds the SDK client and the single model used for both tiers.
type GeminiCore struct {
	client *genai.Client
	model  string
}

// GeminiClient is the strict-quota provider. Every call is serialized
// through a FIFO scheduler so at most one request is in flight.
type GeminiClient struct {
	*GeminiCore
	*core.Service

	scheduler *core.Scheduler
}

var _ domain.Provider = (*GeminiClient)(nil)

// NewGeminiClient builds the provider. The API key is mandatory.
func NewGeminiClient(ctx context.Context, opts core.ProviderOptions) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, core.MissingCredential(domain.ProviderGemini, "GEMINI_API_KEY")
	}

	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// One model serves both tiers; an explicit vision model wins.
	model := getGeminiModel(opts.VisionModel)
	if opts.VisionModel == "" {
		model = getGeminiModel(opts.TextModel)
	}

	cfg := domain.MergeProviderConfig(domain.BaseProviderConfig(domain.ProviderGemini), DefaultOverrides, opts.Overrides)
	c := &GeminiClient{
		GeminiCore: &GeminiCore{client: client, model: model},
		Service:    core.NewService(cfg, opts),
	}
	c.scheduler = core.NewScheduler(c.execute, c.Logger)

	c.Logger.Info("Gemini initialized", "model", model)
	return c, nil
}

func (c *GeminiClient) ProviderInfo() domain.ProviderInfo {
	info := c.Info(c.model, c.model)
	info.Serialized = true
	info.QueueLength = c.scheduler.Len()
	return info
}

func (c *GeminiClient) AnalyzeScreenshot(ctx context.Context, image domain.ImageData, extra string) (string, error) {
	prompt, err := c.ScreenshotPrompt(extra)
	if err != nil {
		return "", err
	}
	parts := []domain.Part{domain.TextPart(prompt.Flatten()), domain.ImagePart(image)}
	result, err := c.GenerateMultimodal(ctx, parts, domain.GenerateOptions{})
	if err != nil {
		return "", err
	}
	c.RecordScreenshot(result)
	return result, nil
}

// GenerateText flattens structured prompts into a single user turn.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt domain.Prompt, opts domain.GenerateOptions) (string, error) {
	return c.scheduler.Submit(ctx, core.KindText, &request{Text: prompt.Flatten(), opts: opts})
}

func (c *GeminiClient) GenerateMultimodal(ctx context.Context, parts []domain.Part, opts domain.GenerateOptions) (string, error) {
	return c.scheduler.Submit(ctx, core.KindMultimodal, &request{Parts: toRequestParts(parts), opts: opts})
}

// execute runs one dequeued request. Gemini is charged the estimate of the
// serialized request, not reported usage.
func (c *GeminiClient) execute(ctx context.Context, req *core.QueuedRequest) (string, error) {
	r, ok := req.Payload.(*request)
	if !ok {
		return "", fmt.Errorf("unexpected gemini payload %T", req.Payload)
	}

	return c.Call(ctx, r.estimate(), func(ctx context.Context) (core.Completion, error) {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, r.contents(req.Kind), r.config())
		if err != nil {
			return core.Completion{}, core.WrapProviderError(domain.ProviderGemini, statusOf(err), err)
		}
		return core.Completion{Text: resp.Text()}, nil
	})
}

func statusOf(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// request is the queued payload. Its JSON form is what the ledger is charged for.
type request struct {
	Text  string        `json:"text,omitempty"`
	Parts []requestPart `json:"parts,omitempty"`

	opts domain.GenerateOptions
}

type requestPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`

	raw []byte
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

func toRequestParts(parts []domain.Part) []requestPart {
	out := make([]requestPart, 0, len(parts))
	for _, p := range parts {
		if p.IsImage() {
			mime := p.Image.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			out = append(out, requestPart{
				InlineData: &inlineData{MimeType: mime, Data: p.Image.Base64()},
				raw:        p.Image.Data,
			})
			continue
		}
		out = append(out, requestPart{Text: p.Text})
	}
	return out
}

func (r *request) estimate() int {
	var data []byte
	if r.Parts != nil {
		data, _ = json.Marshal(r.Parts)
	} else {
		data, _ = json.Marshal(r.Text)
	}
	return core.EstimateTokens(string(data))
}

func (r *request) contents(kind core.RequestKind) []*genai.Content {
	if kind == core.KindText {
		return []*genai.Content{genai.NewContentFromText(r.Text, genai.RoleUser)}
	}

	parts := make([]*genai.Part, 0, len(r.Parts))
	for _, p := range r.Parts {
		if p.InlineData != nil {
			parts = append(parts, genai.NewPartFromBytes(p.raw, p.InlineData.MimeType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func (r *request) config() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(r.opts.TemperatureOrDefault())),
	}
	if r.opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(r.opts.MaxTokens)
	}
	return cfg
}
