package app

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/fpt/go-echoassist/internal/config"
	"github.com/fpt/go-echoassist/pkg/client"
	"github.com/fpt/go-echoassist/pkg/client/core"
	"github.com/fpt/go-echoassist/pkg/domain"
	"github.com/fpt/go-echoassist/pkg/ledger"
	pkgLogger "github.com/fpt/go-echoassist/pkg/logger"
	"github.com/fpt/go-echoassist/pkg/orchestrator"
)

// persistentLog is implemented by state.History.
type persistentLog interface {
	SaveToFile(path string) error
	LoadFromFile(path string) error
}

// App owns the orchestration manager and the resources behind it.
type App struct {
	Manager  *orchestrator.Manager
	Settings *config.Settings

	ledger     *ledger.SQLiteStore
	historyDir string
	log        *pkgLogger.Logger
}

// Options tweak New. Zero values select the production behaviour.
type Options struct {
	// HistoryDir keeps per-provider conversation history between runs. Empty disables it.
	HistoryDir string

	// Build replaces client.NewProvider, mainly in tests.
	Build func(ctx context.Context, backend string, opts core.ProviderOptions) (domain.Provider, error)
}

// New builds every enabled provider from settings and creds. Providers that
// fail to build are left out, so the App may hold no provider at all.
func New(ctx context.Context, settings *config.Settings, creds config.Credentials, log *pkgLogger.Logger, opts Options) *App {
	if log == nil {
		log = pkgLogger.NewComponentLogger("app")
	}
	build := opts.Build
	if build == nil {
		build = client.NewProvider
	}

	a := &App{Settings: settings, historyDir: opts.HistoryDir, log: log}

	if path := settings.ResolveLedgerPath(); path != "" {
		store, err := ledger.Open(path)
		if err != nil {
			log.WarnWithIcon("⚠️", "token ledger disabled", "path", path, "error", err)
		} else {
			a.ledger = store
		}
	}

	var regs []orchestrator.Registration
	for _, name := range client.Backends {
		if !settings.AI.IsEnabled(name) {
			continue
		}
		popts := a.providerOptions(name, creds, log)
		regs = append(regs, orchestrator.Registration{
			Name: name,
			Build: func() (domain.Provider, error) {
				return build(ctx, name, popts)
			},
		})
	}

	a.Manager = orchestrator.NewManager(regs, orchestrator.Options{
		DefaultProvider: settings.AI.DefaultProvider,
		EnableFallback:  settings.AI.FallbackEnabled(),
		Logger:          log.WithComponent("orchestrator"),
	})
	a.loadHistories()
	return a
}

func (a *App) providerOptions(name string, creds config.Credentials, log *pkgLogger.Logger) core.ProviderOptions {
	ps, _ := a.Settings.AI.Provider(name)
	opts := core.ProviderOptions{
		APIKey:      creds.For(name),
		BaseURL:     ps.BaseURL,
		VisionModel: ps.VisionModel,
		TextModel:   ps.TextModel,
		Overrides:   ps.Limits.Overrides(),
		Logger:      log,
	}
	if a.ledger != nil {
		opts.Ledger = a.ledger
	}

	switch name {
	case domain.ProviderGemini:
		opts.VisionModel = ps.Model
		opts.TextModel = ps.Model
	case domain.ProviderOpenRouter:
		opts.SiteURL = a.Settings.AI.OpenRouter.SiteURL
		opts.AppName = a.Settings.AI.OpenRouter.AppName
	case domain.ProviderOllama:
		// The host is the credential; the environment wins over the file.
		opts.APIKey = ""
		if creds.OllamaHost != "" {
			opts.BaseURL = creds.OllamaHost
		}
	}
	return opts
}

func (a *App) historyPath(provider string) string {
	return filepath.Join(a.historyDir, "history-"+provider+".json")
}

func (a *App) eachPersistentLog(fn func(provider string, log persistentLog)) {
	if a.historyDir == "" {
		return
	}
	for _, info := range a.Manager.ProvidersInfo() {
		p := a.Manager.Provider(info.Name)
		if p == nil {
			continue
		}
		if pl, ok := p.History().(persistentLog); ok {
			fn(info.Name, pl)
		}
	}
}

func (a *App) loadHistories() {
	a.eachPersistentLog(func(provider string, pl persistentLog) {
		if err := pl.LoadFromFile(a.historyPath(provider)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			a.log.Warn("failed to restore history", "provider", provider, "error", err)
		}
	})
}

// SaveHistories writes each provider's history to the history directory.
func (a *App) SaveHistories() {
	a.eachPersistentLog(func(provider string, pl persistentLog) {
		if err := pl.SaveToFile(a.historyPath(provider)); err != nil {
			a.log.Warn("failed to save history", "provider", provider, "error", err)
		}
	})
}

// ResetLedger clears persisted token counts for provider, or all providers.
func (a *App) ResetLedger(ctx context.Context, provider string) error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.Reset(ctx, provider)
}

// Close saves histories and releases the ledger.
func (a *App) Close() error {
	a.SaveHistories()
	if a.ledger != nil {
		return a.ledger.Close()
	}
	return nil
}
