package groq

import (
	"testing"

	"github.com/auraloop/aura-core/core/generation"
)

func TestToMessagesInterleavesRolesAfterInstructions(t *testing.T) {
	messages := toMessages("Stay brief.", []generation.Turn{
		{Role: generation.RoleUser, Content: "hello there"},
		{Role: generation.RoleAssistant, Content: "I hear you."},
		{Role: generation.RoleUser, Content: ""},
	})

	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[0].Role != messageRoleSystem || messages[0].Content != "Stay brief." {
		t.Fatalf("unexpected system message: %+v", messages[0])
	}
	if messages[1].Role != messageRoleUser || messages[1].Content != "hello there" {
		t.Fatalf("unexpected user message: %+v", messages[1])
	}
	if messages[2].Role != messageRoleAssistant || messages[2].Content != "I hear you." {
		t.Fatalf("unexpected assistant message: %+v", messages[2])
	}
}

func TestToMessagesWithoutInstructions(t *testing.T) {
	messages := toMessages("", []generation.Turn{
		{Role: generation.RoleUser, Content: "hi"},
	})

	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Role != messageRoleUser {
		t.Fatalf("expected user message first without instructions, got %+v", messages[0])
	}
}
