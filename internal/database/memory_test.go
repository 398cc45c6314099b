package database

import (
	"context"
	"errors"
	"testing"

	"ragnotes/internal/embedding"
	"ragnotes/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(path string, page, idx int, content string) models.Chunk {
	return models.Chunk{
		Content:  content,
		Metadata: models.Metadata{Source: "book", FilePath: path, PageNumber: page, ChunkIndex: idx},
	}
}

func upsert(t *testing.T, idx *MemoryIndex, e embedding.Embedder, c models.Chunk) {
	t.Helper()
	vec, err := e.Embed(context.Background(), c.Content)
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(context.Background(), c, vec))
}

func TestMemoryIndex_QueryOrdersByScore(t *testing.T) {
	e := embedding.NewHashingEmbedder(128)
	idx := NewMemoryIndex(e)

	upsert(t, idx, e, chunk("a.pdf", 1, 0, "bread flour yeast oven"))
	upsert(t, idx, e, chunk("a.pdf", 2, 1, "lighthouse keeper watches ships"))
	upsert(t, idx, e, chunk("a.pdf", 3, 2, "ships sail past the lighthouse at night"))

	results, err := idx.Query(context.Background(), "lighthouse ships", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.Equal(t, 2, results[0].Chunk.Metadata.PageNumber)
	assert.Equal(t, 3, results[1].Chunk.Metadata.PageNumber)
}

func TestMemoryIndex_UpsertReplacesSameKey(t *testing.T) {
	e := embedding.NewHashingEmbedder(32)
	idx := NewMemoryIndex(e)

	upsert(t, idx, e, chunk("a.pdf", 1, 0, "first version"))
	upsert(t, idx, e, chunk("a.pdf", 1, 0, "second version"))
	upsert(t, idx, e, chunk("b.pdf", 1, 0, "other file"))

	assert.Equal(t, 2, idx.Len())
	results, err := idx.Query(context.Background(), "second version", 1)
	require.NoError(t, err)
	assert.Equal(t, "second version", results[0].Chunk.Content)
}

func TestMemoryIndex_RejectsEmptyVector(t *testing.T) {
	idx := NewMemoryIndex(embedding.NewHashingEmbedder(8))
	assert.Error(t, idx.Upsert(context.Background(), chunk("a.pdf", 1, 0, "x"), nil))
}

type failingEmbedder struct{ err error }

func (f failingEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, f.err }

func TestMemoryIndex_QueryPropagatesEmbedError(t *testing.T) {
	boom := errors.New("offline")
	idx := NewMemoryIndex(failingEmbedder{boom})

	_, err := idx.Query(context.Background(), "q", 3)
	assert.ErrorIs(t, err, boom)
}

func TestMemoryIndex_SourcesAreDistinctAndSorted(t *testing.T) {
	e := embedding.NewHashingEmbedder(64)
	idx := NewMemoryIndex(e)

	sources, err := idx.Sources(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sources)

	for i, src := range []string{"tides", "bread", "tides"} {
		c := chunk(src+".pdf", 1, i, "text "+src)
		c.Metadata.Source = src
		upsert(t, idx, e, c)
	}

	sources, err = idx.Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bread", "tides"}, sources)
}
