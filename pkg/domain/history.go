package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ScreenshotEntryPrefix marks a recorded screenshot analysis in history.
const ScreenshotEntryPrefix = "Screenshot analysis: "

// ConversationEntry is one recorded turn.
type ConversationEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationLog is the bounded history a provider feeds into prompts.
type ConversationLog interface {
	Append(role Role, content string)
	Entries() []ConversationEntry
	ContextString() string
	Clear()
	Len() int
}
