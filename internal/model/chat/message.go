package chat

import "time"

// 消息角色。system 仅用于界面与审计通知，不进入模型上下文。
const (
	RoleOfficer   = "officer"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// 警员对单条回复的反馈。
const (
	FeedbackNone = ""
	FeedbackUp   = "up"
	FeedbackDown = "down"
)

// Message is one turn in an assessment or counseling log.
// Immutable after append except for the Feedback field.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Feedback  string    `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsConversational reports whether the message should be forwarded to the
// model backend.
func (m Message) IsConversational() bool {
	return m.Role == RoleOfficer || m.Role == RoleAssistant
}

// ValidFeedback reports whether v is an accepted feedback value.
func ValidFeedback(v string) bool {
	return v == FeedbackUp || v == FeedbackDown
}
