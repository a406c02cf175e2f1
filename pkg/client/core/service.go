package core

import (
	"context"
	"net/http"

	"github.com/fpt/go-echoassist/pkg/domain"
	"github.com/fpt/go-echoassist/pkg/logger"
	"github.com/fpt/go-echoassist/pkg/prompts"
	"github.com/fpt/go-echoassist/pkg/state"
)

// ProviderOptions is what every backend constructor accepts.
type ProviderOptions struct {
	APIKey      string
	BaseURL     string
	VisionModel string
	TextModel   string
	Overrides   domain.ProviderOverrides

	// OpenRouter attribution headers.
	SiteURL string
	AppName string

	// Templates renders the screenshot prompt. Nil selects the embedded set.
	Templates domain.PromptTemplates

	Clock      Clock
	Ledger     LedgerStore
	Logger     *logger.Logger
	HTTPClient *http.Client
}

// Service bundles the per-provider machinery shared by every backend.
type Service struct {
	Config  domain.ProviderConfig
	Clock   Clock
	Limiter *RateLimiter
	Retry   *RetryPolicy
	Budget  *TokenBudget
	Logger  *logger.Logger

	templates domain.PromptTemplates
	history   *state.History
}

// NewService builds a Service for cfg. Nothing is shared with other providers.
func NewService(cfg domain.ProviderConfig, opts ProviderOptions) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default
	}
	log = log.WithComponent("provider").WithProvider(cfg.Name)

	templates := opts.Templates
	if templates == nil {
		templates = prompts.Default()
	}

	limiter := NewRateLimiter(cfg.MinRequestInterval, clock, log)
	return &Service{
		Config:  cfg,
		Clock:   clock,
		Limiter: limiter,
		Retry:   NewRetryPolicy(cfg.MaxRetries, limiter, clock, log),
		Budget:  NewTokenBudget(cfg.Name, cfg.MaxDailyTokens, clock, opts.Ledger, log),
		Logger:  log,

		templates: templates,
		history:   state.NewHistoryWithClock(cfg.MaxHistoryLength, clock.Now),
	}
}

func (s *Service) Name() string {
	return s.Config.Name
}

func (s *Service) History() domain.ConversationLog {
	return s.history
}

// Info reports the limits and usage of this provider.
func (s *Service) Info(visionModel, textModel string) domain.ProviderInfo {
	ledger := s.Budget.Snapshot()
	return domain.ProviderInfo{
		Name:               s.Config.Name,
		VisionModel:        visionModel,
		TextModel:          textModel,
		DailyTokensUsed:    ledger.DailyCount,
		MaxDailyTokens:     s.Budget.Max(),
		WindowStart:        ledger.WindowStart,
		MinRequestInterval: s.Config.MinRequestInterval,
		MaxRetries:         s.Config.MaxRetries,
		HistoryLength:      s.history.Len(),
	}
}

// Completion is what a single transmission returns. UsedTokens is the
// provider-reported usage, zero when absent.
type Completion struct {
	Text       string
	UsedTokens int
}

// Call checks the budget, runs op under the retry policy and charges the
// ledger with the reported usage, or estimate when none was reported.
func (s *Service) Call(ctx context.Context, estimate int, op func(ctx context.Context) (Completion, error)) (string, error) {
	if err := s.Budget.Reserve(estimate); err != nil {
		s.Logger.Warn("request rejected by token budget", "estimate", estimate, "error", err)
		return "", err
	}

	completion, err := Execute(ctx, s.Retry, op)
	if err != nil {
		return "", err
	}

	charge := completion.UsedTokens
	if charge <= 0 {
		charge = estimate
	}
	s.Budget.Record(charge)
	s.Logger.Debug("request completed", "charged_tokens", charge)
	return completion.Text, nil
}

// ScreenshotPrompt renders the screenshot analysis prompt against this
// provider's history.
func (s *Service) ScreenshotPrompt(extra string) (domain.Prompt, error) {
	return s.templates.Render(domain.PromptScreenshot, s.Config.Name, s.history.ContextString(), extra)
}

// RecordScreenshot appends a screenshot analysis result to history.
func (s *Service) RecordScreenshot(result string) {
	s.history.Append(domain.RoleAssistant, domain.ScreenshotEntryPrefix+result)
}
