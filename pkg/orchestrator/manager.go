// Package orchestrator keeps the registry of provider adapters, tracks which
// one is active and dispatches calls with optional cross-provider fallback.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fpt/go-echoassist/pkg/domain"
	"github.com/fpt/go-echoassist/pkg/logger"
	"github.com/fpt/go-echoassist/pkg/prompts"
)

// Registration is one candidate adapter. Build runs once, at manager construction.
type Registration struct {
	Name  string
	Build func() (domain.Provider, error)
}

type Options struct {
	DefaultProvider string
	EnableFallback  bool
	Templates       domain.PromptTemplates
	Logger          *logger.Logger
}

// Op is a unit of work run against one provider.
type Op func(ctx context.Context, p domain.Provider) (string, error)

// Manager is constructed once at startup and passed to every consumer.
type Manager struct {
	mu sync.RWMutex

	providers map[string]domain.Provider
	order     []string
	active    string

	enableFallback bool
	templates      domain.PromptTemplates
	log            *logger.Logger
}

// NewManager builds every registration in order. A registration that fails
// or panics is logged and left out; the manager may end up with none.
func NewManager(regs []Registration, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = logger.NewComponentLogger("orchestrator")
	}
	templates := opts.Templates
	if templates == nil {
		templates = prompts.Default()
	}

	m := &Manager{
		providers:      make(map[string]domain.Provider),
		enableFallback: opts.EnableFallback,
		templates:      templates,
		log:            log,
	}

	for _, reg := range regs {
		name := strings.ToLower(reg.Name)
		if _, dup := m.providers[name]; dup {
			log.Warn("duplicate provider registration ignored", "provider", name)
			continue
		}
		p, err := build(reg)
		if err != nil {
			log.ErrorWithIcon("❌", "failed to initialize provider", "provider", name, "error", err)
			continue
		}
		m.providers[name] = p
		m.order = append(m.order, name)
		log.InfoWithIcon("✅", "provider initialized", "provider", name)
	}

	def := strings.ToLower(opts.DefaultProvider)
	switch {
	case m.providers[def] != nil:
		m.active = def
	case len(m.order) > 0:
		m.active = m.order[0]
		log.Warn("default provider not available", "default", opts.DefaultProvider, "using", m.active)
	default:
		log.ErrorWithIcon("🚫", "no AI providers available")
	}
	return m
}

func build(reg Registration) (p domain.Provider, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("panic during construction: %v", r)
		}
	}()
	if reg.Build == nil {
		return nil, fmt.Errorf("no constructor for %s", reg.Name)
	}
	p, err = reg.Build()
	if err == nil && p == nil {
		err = fmt.Errorf("constructor for %s returned nothing", reg.Name)
	}
	return p, err
}

// AvailableProviders returns registered names in registration order.
func (m *Manager) AvailableProviders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// ActiveProvider returns the active name, or "" when none is active.
func (m *Manager) ActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// SetActiveProvider switches the active adapter. Unknown names change nothing.
func (m *Manager) SetActiveProvider(name string) bool {
	name = strings.ToLower(name)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[name]; !ok {
		m.log.Error("provider not available", "provider", name)
		return false
	}
	m.active = name
	m.log.Info("active provider changed", "provider", name)
	return true
}

func (m *Manager) IsProviderAvailable(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.providers[strings.ToLower(name)]
	return ok
}

// ProvidersInfo reports usage for every registered adapter.
func (m *Manager) ProvidersInfo() []domain.ProviderInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := make([]domain.ProviderInfo, 0, len(m.order))
	for _, name := range m.order {
		info := m.providers[name].ProviderInfo()
		info.IsActive = name == m.active
		infos = append(infos, info)
	}
	return infos
}

// Provider returns the registered adapter called name, or nil.
func (m *Manager) Provider(name string) domain.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[strings.ToLower(name)]
}

func (m *Manager) activeProvider() domain.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == "" {
		return nil
	}
	return m.providers[m.active]
}

// Dispatch runs op on the active adapter. With none active and fallback
// enabled the first registered adapter stands in.
func (m *Manager) Dispatch(ctx context.Context, op Op) (string, error) {
	p := m.activeProvider()
	if p == nil && m.enableFallback {
		m.mu.RLock()
		if len(m.order) > 0 {
			p = m.providers[m.order[0]]
		}
		m.mu.RUnlock()
		if p != nil {
			m.log.Warn("falling back", "provider", p.Name())
		}
	}
	if p == nil {
		return "", domain.ErrNoProviderAvailable
	}
	return op(ctx, p)
}

// DispatchWithFallback tries the active adapter, then every other one in
// registration order, until one succeeds. With fallback disabled the first
// failure is returned as is. Otherwise the last failure is returned.
func (m *Manager) DispatchWithFallback(ctx context.Context, op Op) (string, error) {
	result, _, err := m.dispatch(ctx, op)
	return result, err
}

// dispatch is DispatchWithFallback that also reports the adapter that served.
func (m *Manager) dispatch(ctx context.Context, op Op) (string, domain.Provider, error) {
	m.mu.RLock()
	candidates := make([]domain.Provider, 0, len(m.order))
	if m.active != "" {
		candidates = append(candidates, m.providers[m.active])
	}
	for _, name := range m.order {
		if name != m.active {
			candidates = append(candidates, m.providers[name])
		}
	}
	m.mu.RUnlock()

	var lastErr error
	for _, p := range candidates {
		result, err := op(ctx, p)
		if err == nil {
			return result, p, nil
		}
		m.log.Error("provider failed", "provider", p.Name(), "error", err)
		lastErr = err
		if !m.enableFallback {
			return "", nil, err
		}
	}
	if lastErr != nil {
		return "", nil, lastErr
	}
	return "", nil, fmt.Errorf("%w: %w", domain.ErrAllProvidersFailed, domain.ErrNoProviderAvailable)
}

// conversation is the adapter whose history the session reads and writes:
// the active one, else the first registered.
func (m *Manager) conversation() domain.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.providers[m.active]; ok {
		return p
	}
	if len(m.order) > 0 {
		return m.providers[m.order[0]]
	}
	return nil
}

// AnalyzeScreenshot records the result on the session history even when a
// fallback adapter produced it.
func (m *Manager) AnalyzeScreenshot(ctx context.Context, image domain.ImageData, extra string) (string, error) {
	result, served, err := m.dispatch(ctx, func(ctx context.Context, p domain.Provider) (string, error) {
		return p.AnalyzeScreenshot(ctx, image, extra)
	})
	if err != nil {
		return "", err
	}
	if conv := m.conversation(); conv != nil && conv != served {
		conv.History().Append(domain.RoleAssistant, domain.ScreenshotEntryPrefix+result)
	}
	return result, nil
}

func (m *Manager) GenerateText(ctx context.Context, prompt domain.Prompt, opts domain.GenerateOptions) (string, error) {
	return m.DispatchWithFallback(ctx, func(ctx context.Context, p domain.Provider) (string, error) {
		return p.GenerateText(ctx, prompt, opts)
	})
}

func (m *Manager) GenerateMultimodal(ctx context.Context, parts []domain.Part, opts domain.GenerateOptions) (string, error) {
	return m.DispatchWithFallback(ctx, func(ctx context.Context, p domain.Provider) (string, error) {
		return p.GenerateMultimodal(ctx, parts, opts)
	})
}

// AddToHistory records a turn on the active adapter. No-op with none active.
func (m *Manager) AddToHistory(role domain.Role, content string) {
	if p := m.activeProvider(); p != nil {
		p.History().Append(role, content)
	}
}

func (m *Manager) ClearHistory() {
	if p := m.activeProvider(); p != nil {
		p.History().Clear()
	}
}

// History returns the active adapter's entries, or nil with none active.
func (m *Manager) History() []domain.ConversationEntry {
	if p := m.activeProvider(); p != nil {
		return p.History().Entries()
	}
	return nil
}

func (m *Manager) ContextString() string {
	if p := m.activeProvider(); p != nil {
		return p.History().ContextString()
	}
	return ""
}
