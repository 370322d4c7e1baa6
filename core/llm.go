package core

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// Message is a single role-tagged message sent to the chat-completion
// collaborator.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

func SystemMessage(text string) Message {
	return Message{Role: MessageRoleSystem, Content: text}
}

func UserMessage(text string) Message {
	return Message{Role: MessageRoleUser, Content: text}
}
