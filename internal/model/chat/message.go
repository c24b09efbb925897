package chat

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Timestamp is unix milliseconds from the
// session's logical clock; Streaming is true only for the assistant message
// whose content is still being appended to.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Streaming bool   `json:"streaming,omitempty"`
}
