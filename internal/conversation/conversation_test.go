package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ragnotes/internal/embedding"
	"ragnotes/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turn(role models.Role, content string) models.ConversationTurn {
	return models.ConversationTurn{Role: role, Content: content}
}

func TestMemory_EvictionKeepsMostRecentInOrder(t *testing.T) {
	tests := []struct {
		policy  Policy
		appends int
		want    int
	}{
		{policy: WindowPolicy, appends: 14, want: 10},
		{policy: WindowPolicy, appends: 10, want: 10},
		{policy: PairPolicy, appends: 6, want: 4},
		{policy: PairPolicy, appends: 5, want: 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d after %d", tt.policy.MaxTurns, tt.policy.RetainTurns, tt.appends), func(t *testing.T) {
			m := NewMemory(tt.policy)
			for i := 0; i < tt.appends; i++ {
				m.Append(turn(models.RoleUser, fmt.Sprint(i)))
				m.EvictIfNeeded()
			}

			turns := m.Turns()
			require.Len(t, turns, tt.want)
			for i, got := range turns {
				assert.Equal(t, fmt.Sprint(tt.appends-tt.want+i), got.Content)
			}
		})
	}
}

func TestMemory_EvictIfNeededReportsCount(t *testing.T) {
	m := NewMemory(PairPolicy)
	for i := 0; i < 6; i++ {
		m.Append(turn(models.RoleUser, "x"))
	}
	assert.Equal(t, 2, m.EvictIfNeeded())
	assert.Equal(t, 0, m.EvictIfNeeded())
}

func TestNewMemory_ClampsPolicy(t *testing.T) {
	assert.Equal(t, WindowPolicy, NewMemory(Policy{}).Policy())
	assert.Equal(t, Policy{MaxTurns: 3, RetainTurns: 3}, NewMemory(Policy{MaxTurns: 3, RetainTurns: 8}).Policy())
}

func TestMemory_ResetUserTurnsKeepsAssistant(t *testing.T) {
	m := NewMemory(WindowPolicy)
	m.Append(turn(models.RoleUser, "q1"))
	m.Append(turn(models.RoleAssistant, "a1"))
	m.Append(turn(models.RoleUser, "q2"))
	m.Append(turn(models.RoleAssistant, "a2"))

	assert.Equal(t, []string{"q1", "q2"}, m.UserTexts())

	m.ResetUserTurns()
	assert.Empty(t, m.UserTexts())
	assert.Equal(t, []models.Message{
		{Role: models.RoleAssistant, Content: "a1"},
		{Role: models.RoleAssistant, Content: "a2"},
	}, m.Messages())

	m.Clear()
	assert.Zero(t, m.Len())
}

func TestMemory_CloneIsIndependent(t *testing.T) {
	m := NewMemory(Policy{MaxTurns: 4, RetainTurns: 2})
	m.Append(turn(models.RoleUser, "q1"))
	m.Append(turn(models.RoleAssistant, "a1"))

	c := m.Clone()
	c.ResetUserTurns()
	c.Append(turn(models.RoleUser, "q2"))

	assert.Equal(t, []string{"q1"}, m.UserTexts())
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []string{"q2"}, c.UserTexts())
	assert.Equal(t, m.Policy(), c.Policy())
}

func TestDetector_EmptyPriorIsNotContinuous(t *testing.T) {
	d := NewDetector(embedding.NewHashingEmbedder(64), 0)

	ok, err := d.IsContinuous(context.Background(), nil, "anything")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = d.IsContinuous(context.Background(), []string{"", "  "}, "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDetector_NearDuplicateAndUnrelated(t *testing.T) {
	d := NewDetector(embedding.NewHashingEmbedder(embedding.DefaultHashingDimensions), DefaultThreshold)
	prior := []string{"how do ocean tides work", "what makes tides rise near the harbour"}

	ok, err := d.IsContinuous(context.Background(), prior, "how do ocean tides work\nwhat makes tides rise near the harbour")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.IsContinuous(context.Background(), prior, "best sourdough bread recipe with rye flour")
	require.NoError(t, err)
	assert.False(t, ok)
}

type fixedEmbedder map[string][]float32

func (f fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := f[text]
	if !ok {
		return nil, errors.New("unknown text")
	}
	return v, nil
}

func TestDetector_ThresholdIsStrict(t *testing.T) {
	// cos = 0.7 exactly between these vectors
	e := fixedEmbedder{
		"prior": {1, 0},
		"query": {0.7, 0.71414284},
	}
	d := NewDetector(e, 0.7)

	sim, err := d.Similarity(context.Background(), "prior", "query")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, sim, 1e-6)

	d.Threshold = 0.69
	ok, err := d.IsContinuous(context.Background(), []string{"prior"}, "query")
	require.NoError(t, err)
	assert.True(t, ok)

	d.Threshold = 0.71
	ok, err = d.IsContinuous(context.Background(), []string{"prior"}, "query")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewDetector_KeepsZeroThreshold(t *testing.T) {
	// orthogonal vectors score exactly 0, which is not above a 0 threshold
	e := fixedEmbedder{"prior": {1, 0}, "query": {0, 1}, "near": {1, 1}}
	d := NewDetector(e, 0)
	assert.Zero(t, d.Threshold)

	ok, err := d.IsContinuous(context.Background(), []string{"prior"}, "near")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.IsContinuous(context.Background(), []string{"prior"}, "query")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDetector_ZeroVectorIsNotContinuous(t *testing.T) {
	e := fixedEmbedder{"prior": {0, 0}, "query": {1, 0}}
	ok, err := NewDetector(e, 0.7).IsContinuous(context.Background(), []string{"prior"}, "query")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDetector_PropagatesEmbedError(t *testing.T) {
	_, err := NewDetector(fixedEmbedder{}, 0.7).IsContinuous(context.Background(), []string{"prior"}, "query")
	assert.Error(t, err)
}
