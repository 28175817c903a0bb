package prompts

// Role tags a chat message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a completion request. Image, when set, carries a
// JPEG attachment delivered to the provider as a data URL part alongside
// Content.
type Message struct {
	Role    Role
	Content string
	Image   []byte
}

// System returns a system-role message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user-role message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant returns an assistant-role message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
