package llm

import (
	"context"
	"errors"
)

// Message is a single role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles accepted by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrStreamingUnsupported is returned when a caller requests streamed output.
// Only single request/response completions are implemented.
var ErrStreamingUnsupported = errors.New("streaming output is not supported")

// Gateway is the text-completion service consumed by the assistant.
// Implementations send the ordered message sequence in one request and
// return the generated text. Network errors, rate limits, and malformed
// responses all surface as a single generic error.
type Gateway interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
