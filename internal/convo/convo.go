// Package convo stores conversation history so text generations can
// continue an earlier exchange. Histories are keyed by a client-chosen
// conversation id; the gateway never invents one.
package convo

import "context"

// Message roles as providers understand them. Adapters translate
// RoleAssistant to each provider's own vocabulary ("assistant", "model").
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store persists conversation histories. Implementations must be safe
// for concurrent use.
type Store interface {
	// History returns the messages recorded under the conversation id,
	// oldest first. An unknown id yields an empty history, not an error.
	History(ctx context.Context, id string) ([]Message, error)

	// Append adds messages to the conversation, creating it if needed.
	Append(ctx context.Context, id string, msgs ...Message) error
}
