package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashingEmbedder_Deterministic(t *testing.T) {
	h := NewHashingEmbedder(64)
	a, err := h.Embed(context.Background(), "Tides follow the moon")
	require.NoError(t, err)
	b, err := h.Embed(context.Background(), "tides, follow the MOON!")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, Cosine(a, b), 1e-6)
}

func TestHashingEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	v, err := NewHashingEmbedder(0).Embed(context.Background(), "  ...  ")
	require.NoError(t, err)
	assert.Len(t, v, DefaultHashingDimensions)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestHashingEmbedder_SeparatesTopics(t *testing.T) {
	h := NewHashingEmbedder(DefaultHashingDimensions)
	ctx := context.Background()

	sea, _ := h.Embed(ctx, "ocean tides currents waves harbour ships")
	nearSea, _ := h.Embed(ctx, "ocean tides currents waves harbour boats")
	bread, _ := h.Embed(ctx, "sourdough flour yeast oven crust baking")

	assert.Greater(t, Cosine(sea, nearSea), 0.7)
	assert.Less(t, Cosine(sea, bread), 0.3)
}

func TestCosine_EdgeCases(t *testing.T) {
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine([]float32{1, 0}, []float32{1}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-2, 0}), 1e-9)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
}

func TestCacheKey_StableAndModelScoped(t *testing.T) {
	a := CacheKey("p:", "m1", "text")
	assert.Equal(t, a, CacheKey("p:", "m1", "text"))
	assert.NotEqual(t, a, CacheKey("p:", "m2", "text"))
	assert.Len(t, a, len("p:")+64)
}

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type mapCache struct {
	data   map[string][]float32
	getErr error
	setErr error
}

func (m *mapCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, vec []float32) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = vec
	return nil
}

func TestCachedEmbedder_HitsCacheOnSecondCall(t *testing.T) {
	inner := &countingEmbedder{}
	cache := &mapCache{data: map[string][]float32{}}
	c := NewCachedEmbedder(inner, cache, "all-minilm", "emb:", zerolog.Nop())

	first, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	second, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Len(t, cache.data, 1)
}

func TestCachedEmbedder_CacheFailuresAreNotFatal(t *testing.T) {
	inner := &countingEmbedder{}
	cache := &mapCache{getErr: errors.New("down"), setErr: errors.New("down")}
	c := NewCachedEmbedder(inner, cache, "m", "", zerolog.Nop())

	v, err := c.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, v)
}

func TestCachedEmbedder_PropagatesEmbedderError(t *testing.T) {
	boom := errors.New("model unavailable")
	c := NewCachedEmbedder(&countingEmbedder{err: boom}, &mapCache{data: map[string][]float32{}}, "m", "", zerolog.Nop())

	_, err := c.Embed(context.Background(), "abc")
	assert.ErrorIs(t, err, boom)
}
