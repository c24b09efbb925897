package chat

// SessionRecord is the persisted shape of a tutoring session. ID is empty
// until the store assigns one on first save and never changes afterwards.
// Topic, Questions and SelectedQuestion are fixed at session start; Messages
// is the transcript as of the last successful save.
type SessionRecord struct {
	ID               string    `json:"id,omitempty"`
	Topic            string    `json:"topic"`
	Questions        []string  `json:"questions"`
	SelectedQuestion string    `json:"selectedQuestion"`
	Messages         []Message `json:"messages"`
	CreatedAt        int64     `json:"createdAt,omitempty"`
	UpdatedAt        int64     `json:"updatedAt,omitempty"`
}
