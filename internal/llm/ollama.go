package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"ragnotes/internal/models"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// OllamaGateway handles interactions with the Ollama chat API
type OllamaGateway struct {
	Client *api.Client
	Model  string
	// JSON asks the model to constrain its output to JSON
	JSON    bool
	Options map[string]any
}

var _ Gateway = (*OllamaGateway)(nil)

// NewOllamaGateway creates a new Ollama chat client. An empty host falls back
// to OLLAMA_HOST or the local default.
func NewOllamaGateway(host string, model string) (*OllamaGateway, error) {
	hostURL := envconfig.Host()
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
		}
		hostURL = u
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaGateway{
		Client: client,
		Model:  model,
		Options: map[string]any{
			"temperature": 0.1,
		},
	}, nil
}

// Complete generates a single, non-streamed reply
func (o *OllamaGateway) Complete(ctx context.Context, messages []models.Message) (string, error) {
	msgs := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, api.Message{Role: string(m.Role), Content: m.Content})
	}

	stream := false
	req := api.ChatRequest{
		Model:    o.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  o.Options,
	}
	if o.JSON {
		req.Format = json.RawMessage(`"json"`)
	}

	var responseBuilder strings.Builder
	err := o.Client.Chat(ctx, &req, func(resp api.ChatResponse) error {
		_, err := responseBuilder.WriteString(resp.Message.Content)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate response: %w", err)
	}

	return responseBuilder.String(), nil
}
