// Package llm wraps the chat-completion backends and the structured notes
// format every summarization prompt asks for.
package llm

import (
	"context"

	"ragnotes/internal/models"
)

// Gateway sends role-tagged messages to a chat model and returns its reply.
// An empty reply with a nil error means the model produced nothing usable.
type Gateway interface {
	Complete(ctx context.Context, messages []models.Message) (string, error)
}
