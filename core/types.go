package core

// Role tags a turn as spoken by the user or generated by the assistant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation. Turns are immutable once
// appended; a conversation is an ordered, append-only sequence of them.
type Turn struct {
	Role    Role   `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// UserTurn builds a user turn from a transcript.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn builds an assistant turn from a completion.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// Reply is the outcome of a pipeline run. Audio may be nil when synthesis
// failed after a completed exchange; Text is still deliverable on its own in
// that case.
type Reply struct {
	Text  string
	Audio []byte
}
