package orchestrator

import (
	"context"

	"github.com/fpt/go-echoassist/pkg/domain"
)

// Returned without a network call when the session history is empty.
const (
	NoHistoryToSummarize = "No conversation history to summarize."
	NoHistoryForEmail    = "No conversation history to create email from."
	NotEnoughForInsights = "Not enough conversation data for insights."
)

// ask renders kind with the session history and runs it on each candidate in
// turn. A fallback adapter sees the same conversation as the active one.
func (m *Manager) ask(ctx context.Context, kind domain.PromptKind, historyCtx, extra string) (string, error) {
	return m.DispatchWithFallback(ctx, func(ctx context.Context, p domain.Provider) (string, error) {
		prompt, err := m.templates.Render(kind, p.Name(), historyCtx, extra)
		if err != nil {
			return "", err
		}
		return p.GenerateText(ctx, prompt, domain.GenerateOptions{})
	})
}

func (m *Manager) sessionContext() (string, int) {
	conv := m.conversation()
	if conv == nil {
		return "", 0
	}
	return conv.History().ContextString(), conv.History().Len()
}

func (m *Manager) askWithHistory(ctx context.Context, kind domain.PromptKind, emptyMessage string) (string, error) {
	historyCtx, n := m.sessionContext()
	if n == 0 && m.conversation() != nil {
		return emptyMessage, nil
	}
	return m.ask(ctx, kind, historyCtx, "")
}

// SuggestResponse proposes replies for the situation described by situation.
func (m *Manager) SuggestResponse(ctx context.Context, situation string) (string, error) {
	historyCtx, _ := m.sessionContext()
	return m.ask(ctx, domain.PromptSuggest, historyCtx, situation)
}

func (m *Manager) GenerateMeetingNotes(ctx context.Context) (string, error) {
	return m.askWithHistory(ctx, domain.PromptMeetingNote, NoHistoryToSummarize)
}

func (m *Manager) GenerateFollowUpEmail(ctx context.Context) (string, error) {
	return m.askWithHistory(ctx, domain.PromptFollowUp, NoHistoryForEmail)
}

func (m *Manager) ConversationInsights(ctx context.Context) (string, error) {
	return m.askWithHistory(ctx, domain.PromptInsights, NotEnoughForInsights)
}

// AnswerQuestion answers with the conversation as context, then records the
// question and answer on the session history, whichever adapter served it.
func (m *Manager) AnswerQuestion(ctx context.Context, question string) (string, error) {
	historyCtx, _ := m.sessionContext()
	answer, err := m.ask(ctx, domain.PromptQuestion, historyCtx, question)
	if err != nil {
		return "", err
	}
	if conv := m.conversation(); conv != nil {
		conv.History().Append(domain.RoleUser, question)
		conv.History().Append(domain.RoleAssistant, answer)
	}
	return answer, nil
}
