package domain

// PromptKind names a helper prompt.
type PromptKind string

const (
	PromptScreenshot  PromptKind = "screenshot_analysis"
	PromptSuggest     PromptKind = "suggest_response"
	PromptMeetingNote PromptKind = "meeting_notes"
	PromptFollowUp    PromptKind = "follow_up_email"
	PromptQuestion    PromptKind = "answer_question"
	PromptInsights    PromptKind = "conversation_insights"
)

// PromptTemplates renders a prompt for a provider from the history context
// string and one extra free-text argument.
type PromptTemplates interface {
	Render(kind PromptKind, provider string, historyContext string, extra string) (Prompt, error)
}
