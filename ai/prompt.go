package ai

import (
	"fmt"

	"groupchat/domain"
)

// SystemInstruction frames every completion request.
const SystemInstruction = "You are a helpful AI assistant in a group chat. " +
	"Provide concise and friendly responses."

// ContextMessages is how much room history accompanies each query.
const ContextMessages = 10

// BuildPrompt renders the target room's recent history into provider
// turns: prior AI messages become assistant turns, human messages
// become user turns prefixed with their author, and the fresh query is
// the final user turn.
func BuildPrompt(history []domain.Message, query string) []PromptTurn {
	turns := make([]PromptTurn, 0, len(history)+2)
	turns = append(turns, PromptTurn{Role: RoleSystem, Content: SystemInstruction})
	for _, msg := range history {
		if msg.IsAI {
			turns = append(turns, PromptTurn{Role: RoleAssistant, Content: msg.Content})
			continue
		}
		turns = append(turns, PromptTurn{
			Role:    RoleUser,
			Content: fmt.Sprintf("[%s]: %s", msg.AuthorName, msg.Content),
		})
	}
	return append(turns, PromptTurn{Role: RoleUser, Content: query})
}
