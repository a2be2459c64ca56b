package groq

import "github.com/auraloop/aura-core/core/generation"

type message struct {
	Role    messageRole `json:"role"`
	Content string      `json:"content"`
}

type messageRole string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

func toMessages(instructions string, turns []generation.Turn) []message {
	messages := []message{}
	if instructions != "" {
		messages = append(messages, message{
			Role:    messageRoleSystem,
			Content: instructions,
		})
	}

	for _, turn := range turns {
		if turn.Content == "" {
			continue
		}

		role := messageRoleUser
		if turn.Role == generation.RoleAssistant {
			role = messageRoleAssistant
		}
		messages = append(messages, message{
			Role:    role,
			Content: turn.Content,
		})
	}
	return messages
}
