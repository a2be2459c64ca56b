package openai

import "github.com/auraloop/aura-core/core/generation"

type openAIMessage struct {
	Type messageType `json:"type"`

	Role    messageRole `json:"role,omitempty"`
	Content string      `json:"content,omitempty"`
}

type messageRole string

const (
	messageRoleDeveloper messageRole = "developer"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
)

type messageType string

const (
	messageTypeMessage messageType = "message"
)

func toOpenAIMessages(instructions string, turns []generation.Turn) []openAIMessage {
	messages := []openAIMessage{}
	if instructions != "" {
		messages = append(messages, openAIMessage{
			Type:    messageTypeMessage,
			Role:    messageRoleDeveloper,
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
		messages = append(messages, openAIMessage{
			Type:    messageTypeMessage,
			Role:    role,
			Content: turn.Content,
		})
	}
	return messages
}
