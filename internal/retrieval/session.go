package retrieval

import (
	"context"
	"fmt"
	"time"

	"ragnotes/internal/conversation"
	"ragnotes/internal/llm"
	"ragnotes/internal/metrics"
	"ragnotes/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ResetMode selects what a topic change discards
type ResetMode string

const (
	// ResetUserTurns drops the user turns and keeps assistant replies
	ResetUserTurns ResetMode = "user_turns"
	// ResetAll clears the whole history
	ResetAll ResetMode = "all"
)

// Session is one knowledge-base conversation. It owns its memory and must
// not be shared between goroutines.
type Session struct {
	ID        string
	Memory    *conversation.Memory
	Detector  *conversation.Detector
	Assembler *Assembler
	Gateway   llm.Gateway
	Reset     ResetMode

	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewSession starts a session with an empty memory. m may be nil.
func NewSession(mem *conversation.Memory, det *conversation.Detector, asm *Assembler, gw llm.Gateway,
	reset ResetMode, log zerolog.Logger, m *metrics.Metrics) *Session {
	if reset == "" {
		reset = ResetUserTurns
	}
	id := uuid.NewString()
	return &Session{
		ID:        id,
		Memory:    mem,
		Detector:  det,
		Assembler: asm,
		Gateway:   gw,
		Reset:     reset,
		log:       log.With().Str("session", id).Logger(),
		metrics:   m,
	}
}

// Ask answers query from the index, resetting the history first when the
// question leaves the current topic
func (s *Session) Ask(ctx context.Context, query string) (*models.Response, error) {
	prior := s.Memory.UserTexts()

	continuous, err := s.Detector.IsContinuous(ctx, prior, query)
	if err != nil {
		return nil, fmt.Errorf("failed to check topic continuity: %w", err)
	}

	// a topic change is applied to a copy first and committed only once the
	// reply arrives, so a failed turn leaves the memory as it was
	history := s.Memory
	topicReset := !continuous && len(prior) > 0
	if topicReset {
		history = s.Memory.Clone()
		s.resetMemory(history)
		prior = nil
	}

	grounding, err := s.Assembler.BuildContext(ctx, query, prior, continuous)
	if err != nil {
		return nil, err
	}
	prompt := s.Assembler.BuildPrompt(grounding.Text, query)

	messages := append(history.Messages(), models.Message{Role: models.RoleUser, Content: prompt})
	answer, err := s.Gateway.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	if topicReset {
		s.resetMemory(s.Memory)
		s.log.Info().Str("reset", string(s.Reset)).Msg("new topic detected, conversation history reset")
		if s.metrics != nil {
			s.metrics.TopicResetsTotal.Inc()
		}
	}

	s.Memory.Append(models.ConversationTurn{Role: models.RoleUser, Content: query})
	s.Memory.Append(models.ConversationTurn{Role: models.RoleAssistant, Content: answer, Citations: grounding.Citations})
	if evicted := s.Memory.EvictIfNeeded(); evicted > 0 {
		s.log.Debug().Int("evicted", evicted).Int("retained", s.Memory.Len()).Msg("conversation memory trimmed")
		if s.metrics != nil {
			s.metrics.MemoryEvictionsTotal.Add(float64(evicted))
		}
	}

	return &models.Response{
		Answer:     answer,
		Sources:    grounding.Citations,
		TopicReset: topicReset,
		Timestamp:  time.Now().Format(time.RFC3339),
	}, nil
}

func (s *Session) resetMemory(m *conversation.Memory) {
	if s.Reset == ResetAll {
		m.Clear()
		return
	}
	m.ResetUserTurns()
}
