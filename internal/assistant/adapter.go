package assistant

import (
	"context"

	"lexdraft/internal/middleware"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	Role    Role
	Content string
}

// Adapter abstracts chat completion providers. Reply returns the text of the
// first completion choice, untrimmed.
type Adapter interface {
	Reply(ctx context.Context, messages []Message, params *middleware.LLMParams) (string, error)
}
