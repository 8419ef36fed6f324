package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]ChatMessage{
		{Role: ChatRoleSystem, Content: "one"},
		{Role: ChatRoleUser, Content: "hello"},
		{Role: ChatRoleSystem, Content: "two"},
	})
	assert.Equal(t, "one\n\ntwo", system)
	assert.Equal(t, []ChatMessage{{Role: ChatRoleUser, Content: "hello"}}, rest)

	system, rest = SplitSystem(nil)
	assert.Empty(t, system)
	assert.Empty(t, rest)
}
