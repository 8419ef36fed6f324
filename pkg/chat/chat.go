package chat

const (
	ChatRoleUser   = "user"
	ChatRoleAgent  = "assistant"
	ChatRoleSystem = "system"
)

// ChatMessage is one message sent to a generation provider. The shape follows
// the role/content convention shared by the hosted chat APIs.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// SplitSystem separates system messages from the conversation. Providers that
// take the system prompt as a dedicated field use it.
func SplitSystem(messages []ChatMessage) (system string, rest []ChatMessage) {
	for _, m := range messages {
		if m.Role == ChatRoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
