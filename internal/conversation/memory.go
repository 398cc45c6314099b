// Package conversation holds a chat session's bounded history and decides
// whether a new question continues the current topic.
package conversation

import "ragnotes/internal/models"

// Policy bounds a Memory. Once it holds more than MaxTurns turns, the oldest
// are dropped until RetainTurns remain.
type Policy struct {
	MaxTurns    int
	RetainTurns int
}

var (
	// PairPolicy keeps the last two exchanges once a third completes
	PairPolicy = Policy{MaxTurns: 5, RetainTurns: 4}
	// WindowPolicy keeps the ten most recent turns
	WindowPolicy = Policy{MaxTurns: 10, RetainTurns: 10}
)

// Memory is the ordered turn history of one session. It is not safe for
// concurrent use; each session owns its own value.
type Memory struct {
	policy Policy
	turns  []models.ConversationTurn
}

// NewMemory creates an empty memory. A RetainTurns outside 1..MaxTurns is
// clamped to MaxTurns.
func NewMemory(p Policy) *Memory {
	if p.MaxTurns <= 0 {
		p = WindowPolicy
	}
	if p.RetainTurns <= 0 || p.RetainTurns > p.MaxTurns {
		p.RetainTurns = p.MaxTurns
	}
	return &Memory{policy: p}
}

// Policy returns the capacity bounds in effect
func (m *Memory) Policy() Policy {
	return m.policy
}

// Append adds a turn at the end
func (m *Memory) Append(turn models.ConversationTurn) {
	m.turns = append(m.turns, turn)
}

// EvictIfNeeded drops turns from the front when the memory exceeds its bound
// and returns how many were removed.
func (m *Memory) EvictIfNeeded() int {
	if len(m.turns) <= m.policy.MaxTurns {
		return 0
	}
	n := len(m.turns) - m.policy.RetainTurns
	m.turns = append([]models.ConversationTurn(nil), m.turns[n:]...)
	return n
}

// Turns returns a copy of the history, oldest first
func (m *Memory) Turns() []models.ConversationTurn {
	return append([]models.ConversationTurn(nil), m.turns...)
}

// Len returns the number of turns held
func (m *Memory) Len() int {
	return len(m.turns)
}

// UserTexts returns the content of user turns in order
func (m *Memory) UserTexts() []string {
	var out []string
	for _, t := range m.turns {
		if t.Role == models.RoleUser {
			out = append(out, t.Content)
		}
	}
	return out
}

// ResetUserTurns removes every user turn, keeping assistant turns in order
func (m *Memory) ResetUserTurns() {
	kept := m.turns[:0]
	for _, t := range m.turns {
		if t.Role != models.RoleUser {
			kept = append(kept, t)
		}
	}
	m.turns = kept
}

// Clone returns an independent copy with the same policy and turns
func (m *Memory) Clone() *Memory {
	return &Memory{policy: m.policy, turns: m.Turns()}
}

// Clear removes all turns
func (m *Memory) Clear() {
	m.turns = nil
}

// Messages converts the history to gateway messages
func (m *Memory) Messages() []models.Message {
	msgs := make([]models.Message, 0, len(m.turns))
	for _, t := range m.turns {
		msgs = append(msgs, models.Message{Role: t.Role, Content: t.Content})
	}
	return msgs
}
