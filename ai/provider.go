//go:generate go run go.uber.org/mock/mockgen -source=provider.go -destination=../mocks/mock_provider.go -package=mocks
package ai

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PromptTurn is one turn of the conversation sent to the provider.
type PromptTurn struct {
	Role    Role
	Content string
}

// ICompletionProvider streams a completion for the prompt. Each text
// fragment is handed to emit as soon as it arrives; the stream is a
// single pass and not restartable. An error from emit or from the
// provider terminates the stream early and is returned as-is.
type ICompletionProvider interface {
	StreamCompletion(ctx context.Context, turns []PromptTurn, emit func(chunk string) error) error
}
