package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		name     string
		build    func(string) Message
		wantRole Role
	}{
		{name: "system", build: SystemMessage, wantRole: RoleSystem},
		{name: "user", build: UserMessage, wantRole: RoleUser},
		{name: "assistant", build: AssistantMessage, wantRole: RoleAssistant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, content := range []string{"", "I feel nostalgic", "Line 1\nLine 2"} {
				msg := tt.build(content)
				assert.Equal(t, tt.wantRole, msg.Role)
				assert.Equal(t, content, msg.Content)
			}
		})
	}
}
