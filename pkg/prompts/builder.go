package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/fractured-truths/pkg/chat"
)

// Builder constructs chat messages for a generation call using a fluent interface.
type Builder struct {
	system []string
	lines  []string
}

// New creates an empty prompt builder.
func New() *Builder {
	return &Builder{}
}

// WithSystem appends a line to the system message.
func (b *Builder) WithSystem(line string) *Builder {
	if line = strings.TrimSpace(line); line != "" {
		b.system = append(b.system, line)
	}
	return b
}

// Line appends a formatted line to the user message.
func (b *Builder) Line(format string, args ...any) *Builder {
	b.lines = append(b.lines, fmt.Sprintf(format, args...))
	return b
}

// List appends a titled bullet list. An empty list renders as "- none".
func (b *Builder) List(title string, items []string) *Builder {
	body := "- none"
	if len(items) > 0 {
		body = "- " + strings.Join(items, "\n- ")
	}
	b.lines = append(b.lines, title+":\n"+body)
	return b
}

// Build returns the message array. The system message is omitted when empty.
func (b *Builder) Build() []chat.ChatMessage {
	messages := make([]chat.ChatMessage, 0, 2)
	if len(b.system) > 0 {
		messages = append(messages, chat.ChatMessage{
			Role:    chat.ChatRoleSystem,
			Content: strings.Join(b.system, "\n"),
		})
	}
	messages = append(messages, chat.ChatMessage{
		Role:    chat.ChatRoleUser,
		Content: strings.Join(b.lines, "\n"),
	})
	return messages
}
