package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpt/go-echoassist/pkg/domain"
)

func TestHelpersWithEmptyHistory(t *testing.T) {
	a := newFake("a", "should not be used", nil)
	m := newManager(true, "a", a)
	ctx := context.Background()

	notes, err := m.GenerateMeetingNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, NoHistoryToSummarize, notes)

	email, err := m.GenerateFollowUpEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, NoHistoryForEmail, email)

	insights, err := m.ConversationInsights(ctx)
	require.NoError(t, err)
	assert.Equal(t, NotEnoughForInsights, insights)

	assert.Equal(t, 0, a.calls)
}

func TestHelpersRenderWithHistory(t *testing.T) {
	a := newFake("a", "notes", nil)
	m := newManager(true, "a", a)
	m.AddToHistory(domain.RoleUser, "hi")

	got, err := m.GenerateMeetingNotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "notes", got)
	require.Len(t, a.prompts, 1)
	assert.Equal(t, "meeting_notes|a|user: hi|", a.prompts[0].Text)
}

func TestSuggestResponse(t *testing.T) {
	a := newFake("a", "say yes", nil)
	m := newManager(true, "a", a)

	got, err := m.SuggestResponse(context.Background(), "asked about pricing")
	require.NoError(t, err)
	assert.Equal(t, "say yes", got)
	assert.Equal(t, "suggest_response|a||asked about pricing", a.prompts[0].Text)
}

func TestAnswerQuestionRecordsTurnOnActiveHistory(t *testing.T) {
	a := newFake("a", "", assert.AnError)
	b := newFake("b", "42", nil)
	m := newManager(true, "a", a, b)

	got, err := m.AnswerQuestion(context.Background(), "what is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "42", got)

	assert.Equal(t, 0, b.history.Len())
	assert.Equal(t, "user: what is the answer?\n\nassistant: 42", m.ContextString())
}

func TestFallbackHelperUsesActiveHistory(t *testing.T) {
	unavailable := errors.New("503 service unavailable")
	a := newFake("a", "", unavailable)
	b := newFake("b", "notes from b", nil)
	m := newManager(true, "a", a, b)
	m.AddToHistory(domain.RoleUser, "hi")

	got, err := m.GenerateMeetingNotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "notes from b", got)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	require.Len(t, b.prompts, 1)
	assert.Equal(t, "meeting_notes|b|user: hi|", b.prompts[0].Text)
}

func TestFallbackHelperReturnsLastError(t *testing.T) {
	errB := errors.New("b is down too")
	a := newFake("a", "", errors.New("503 service unavailable"))
	b := newFake("b", "", errB)
	m := newManager(true, "a", a, b)
	m.AddToHistory(domain.RoleUser, "hi")

	_, err := m.GenerateFollowUpEmail(context.Background())
	assert.Equal(t, errB, err)
}

func TestFallbackScreenshotRecordedOnActiveHistory(t *testing.T) {
	a := newFake("a", "", assert.AnError)
	b := newFake("b", "a login form", nil)
	m := newManager(true, "a", a, b)

	got, err := m.AnalyzeScreenshot(context.Background(), domain.PNG([]byte{1}), "")
	require.NoError(t, err)
	assert.Equal(t, "a login form", got)
	assert.Equal(t, "assistant: Screenshot analysis: a login form", m.ContextString())
}

func TestAnalyzeScreenshotThroughManager(t *testing.T) {
	a := newFake("a", "a login form", nil)
	m := newManager(true, "a", a)

	got, err := m.AnalyzeScreenshot(context.Background(), domain.PNG([]byte{1}), "")
	require.NoError(t, err)
	assert.Equal(t, "a login form", got)
	assert.Equal(t, "assistant: Screenshot analysis: a login form", m.ContextString())
}
