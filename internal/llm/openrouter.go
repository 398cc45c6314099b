package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ragnotes/internal/models"
)

// StatusError is returned when the completions endpoint answers with a non-2xx status
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: %d, %s", e.Code, e.Body)
}

// RateLimited reports whether the server asked the client to slow down
func (e *StatusError) RateLimited() bool {
	return e.Code == http.StatusTooManyRequests
}

// OpenRouterGateway talks to an OpenAI-compatible chat completions endpoint
type OpenRouterGateway struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

var _ Gateway = (*OpenRouterGateway)(nil)

// NewOpenRouterGateway creates a client for baseURL (e.g. https://openrouter.ai/api/v1)
func NewOpenRouterGateway(baseURL, apiKey, model string, timeout time.Duration) *OpenRouterGateway {
	return &OpenRouterGateway{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []models.Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete posts the messages and returns the first choice's content.
// A reply without content yields "" and no error.
func (g *OpenRouterGateway) Complete(ctx context.Context, messages []models.Message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: g.Model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call completions endpoint: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil {
		return "", nil
	}
	return *parsed.Choices[0].Message.Content, nil
}
