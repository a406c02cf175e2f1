package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpt/go-echoassist/pkg/domain"
	"github.com/fpt/go-echoassist/pkg/logger"
	"github.com/fpt/go-echoassist/pkg/state"
)

type fakeProvider struct {
	name    string
	reply   string
	err     error
	calls   int
	prompts []domain.Prompt
	history *state.History
}

func newFake(name, reply string, err error) *fakeProvider {
	return &fakeProvider{name: name, reply: reply, err: err, history: state.NewHistory(20)}
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AnalyzeScreenshot(ctx context.Context, image domain.ImageData, extra string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.history.Append(domain.RoleAssistant, "Screenshot analysis: "+f.reply)
	return f.reply, nil
}

func (f *fakeProvider) GenerateText(ctx context.Context, prompt domain.Prompt, opts domain.GenerateOptions) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeProvider) GenerateMultimodal(ctx context.Context, parts []domain.Part, opts domain.GenerateOptions) (string, error) {
	f.calls++
	return f.reply, f.err
}

func (f *fakeProvider) ProviderInfo() domain.ProviderInfo {
	return domain.ProviderInfo{Name: f.name, HistoryLength: f.history.Len()}
}

func (f *fakeProvider) History() domain.ConversationLog { return f.history }

type stubTemplates struct{}

func (stubTemplates) Render(kind domain.PromptKind, provider, historyContext, extra string) (domain.Prompt, error) {
	return domain.TextPrompt(string(kind) + "|" + provider + "|" + historyContext + "|" + extra), nil
}

func register(providers ...*fakeProvider) []Registration {
	regs := make([]Registration, 0, len(providers))
	for _, p := range providers {
		p := p
		regs = append(regs, Registration{Name: p.name, Build: func() (domain.Provider, error) { return p, nil }})
	}
	return regs
}

func newManager(fallback bool, def string, providers ...*fakeProvider) *Manager {
	return NewManager(register(providers...), Options{
		DefaultProvider: def,
		EnableFallback:  fallback,
		Templates:       stubTemplates{},
		Logger:          logger.Discard(),
	})
}

func TestInitialActiveProvider(t *testing.T) {
	a, b := newFake("a", "", nil), newFake("b", "", nil)

	assert.Equal(t, "b", newManager(true, "b", a, b).ActiveProvider())
	assert.Equal(t, "a", newManager(true, "missing", a, b).ActiveProvider())
	assert.Equal(t, "", newManager(true, "a").ActiveProvider())
}

func TestConstructionFailuresAreSkipped(t *testing.T) {
	good := newFake("good", "ok", nil)
	regs := []Registration{
		{Name: "broken", Build: func() (domain.Provider, error) {
			return nil, domain.NewConfigurationError("broken", "API key not set")
		}},
		{Name: "panicky", Build: func() (domain.Provider, error) { panic("boom") }},
		{Name: "nothing"},
		{Name: "good", Build: func() (domain.Provider, error) { return good, nil }},
	}

	m := NewManager(regs, Options{DefaultProvider: "broken", EnableFallback: true, Logger: logger.Discard()})

	assert.Equal(t, []string{"good"}, m.AvailableProviders())
	assert.Equal(t, "good", m.ActiveProvider())
	assert.False(t, m.IsProviderAvailable("broken"))
	assert.True(t, m.IsProviderAvailable("GOOD"))
}

func TestSetActiveProvider(t *testing.T) {
	m := newManager(true, "a", newFake("a", "", nil), newFake("b", "", nil))

	assert.False(t, m.SetActiveProvider("nonexistent"))
	assert.Equal(t, "a", m.ActiveProvider())

	assert.True(t, m.SetActiveProvider("B"))
	assert.Equal(t, "b", m.ActiveProvider())
}

func TestDispatchWithFallback(t *testing.T) {
	errA := errors.New("503 service unavailable")

	t.Run("enabled", func(t *testing.T) {
		a, b := newFake("a", "", errA), newFake("b", "from b", nil)
		m := newManager(true, "a", a, b)

		got, err := m.GenerateText(context.Background(), domain.TextPrompt("hi"), domain.GenerateOptions{})
		require.NoError(t, err)
		assert.Equal(t, "from b", got)
		assert.Equal(t, 1, a.calls)
		assert.Equal(t, 1, b.calls)
		assert.Equal(t, "a", m.ActiveProvider())
	})

	t.Run("disabled", func(t *testing.T) {
		a, b := newFake("a", "", errA), newFake("b", "from b", nil)
		m := newManager(false, "a", a, b)

		_, err := m.GenerateText(context.Background(), domain.TextPrompt("hi"), domain.GenerateOptions{})
		assert.Same(t, errA, err)
		assert.Equal(t, 0, b.calls)
	})

	t.Run("active first", func(t *testing.T) {
		a, b, c := newFake("a", "from a", nil), newFake("b", "", errA), newFake("c", "from c", nil)
		m := newManager(true, "b", a, b, c)

		got, err := m.GenerateMultimodal(context.Background(), nil, domain.GenerateOptions{})
		require.NoError(t, err)
		assert.Equal(t, "from a", got)
		assert.Equal(t, 1, b.calls)
		assert.Equal(t, 0, c.calls)
	})

	t.Run("all fail", func(t *testing.T) {
		last := errors.New("network down")
		m := newManager(true, "a", newFake("a", "", errA), newFake("b", "", last))

		_, err := m.GenerateText(context.Background(), domain.TextPrompt("hi"), domain.GenerateOptions{})
		assert.Same(t, last, err)
	})

	t.Run("none registered", func(t *testing.T) {
		m := newManager(true, "a")

		_, err := m.GenerateText(context.Background(), domain.TextPrompt("hi"), domain.GenerateOptions{})
		assert.ErrorIs(t, err, domain.ErrAllProvidersFailed)
		assert.ErrorIs(t, err, domain.ErrNoProviderAvailable)
	})
}

func TestDispatch(t *testing.T) {
	a := newFake("a", "from a", nil)
	m := newManager(true, "a", a)
	echo := func(ctx context.Context, p domain.Provider) (string, error) { return p.Name(), nil }

	got, err := m.Dispatch(context.Background(), echo)
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	_, err = newManager(false, "").Dispatch(context.Background(), echo)
	assert.ErrorIs(t, err, domain.ErrNoProviderAvailable)
}

func TestProvidersInfoMarksActive(t *testing.T) {
	m := newManager(true, "b", newFake("a", "", nil), newFake("b", "", nil))

	infos := m.ProvidersInfo()
	require.Len(t, infos, 2)
	assert.False(t, infos[0].IsActive)
	assert.True(t, infos[1].IsActive)
	assert.Equal(t, "b", infos[1].Name)
}

func TestHistoryFollowsActiveProvider(t *testing.T) {
	a, b := newFake("a", "", nil), newFake("b", "", nil)
	m := newManager(true, "a", a, b)

	m.AddToHistory(domain.RoleUser, "hi")
	m.AddToHistory(domain.RoleAssistant, "hello")
	assert.Equal(t, "user: hi\n\nassistant: hello", m.ContextString())

	require.True(t, m.SetActiveProvider("b"))
	assert.Empty(t, m.History())
	assert.Equal(t, 2, a.history.Len())

	require.True(t, m.SetActiveProvider("a"))
	m.ClearHistory()
	assert.Equal(t, 0, a.history.Len())
}

func TestHistoryWithNoProviders(t *testing.T) {
	m := newManager(true, "")

	m.AddToHistory(domain.RoleUser, "lost")
	m.ClearHistory()
	assert.Nil(t, m.History())
	assert.Equal(t, "", m.ContextString())
}
