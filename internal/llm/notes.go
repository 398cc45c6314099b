package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ragnotes/internal/models"
)

var (
	// ErrEmptyCompletion is returned when the model produced no text
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrInvalidNotes is returned when a completion is not a notes document
	ErrInvalidNotes = errors.New("invalid notes")
)

// NotesGenerator asks a gateway for structured notes
type NotesGenerator struct {
	Gateway Gateway
}

// NewNotesGenerator creates a notes generator on top of gateway
func NewNotesGenerator(gateway Gateway) *NotesGenerator {
	return &NotesGenerator{Gateway: gateway}
}

// Generate sends prompt as a single user message and parses the reply
func (g *NotesGenerator) Generate(ctx context.Context, prompt string) (*models.Notes, error) {
	reply, err := g.Gateway.Complete(ctx, []models.Message{{Role: models.RoleUser, Content: prompt}})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply) == "" {
		return nil, ErrEmptyCompletion
	}
	return ParseNotes(reply)
}

// ParseNotes decodes a notes document, tolerating a surrounding markdown
// code fence. The top-level "content" array is required.
func ParseNotes(raw string) (*models.Notes, error) {
	cleaned := stripFence(raw)

	var probe struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotes, err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(probe.Content), []byte("[")) {
		return nil, fmt.Errorf("%w: missing content array", ErrInvalidNotes)
	}

	var notes models.Notes
	if err := json.Unmarshal([]byte(cleaned), &notes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNotes, err)
	}
	return &notes, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	default:
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
