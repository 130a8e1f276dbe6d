package models

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatTurn is one entry of a conversation as it is sent upstream.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered prompt; insertion order is the order sent to the model.
type Conversation []ChatTurn

// Clone returns a copy that can be appended to without touching the receiver.
func (c Conversation) Clone() Conversation {
	out := make(Conversation, len(c), len(c)+2)
	copy(out, c)
	return out
}
