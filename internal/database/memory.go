package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ragnotes/internal/embedding"
	"ragnotes/internal/models"
)

type memoryKey struct {
	filePath   string
	page       int
	chunkIndex int
}

type memoryEntry struct {
	chunk models.Chunk
	vec   []float32
}

// MemoryIndex is a brute-force cosine index held in process memory
type MemoryIndex struct {
	mu       sync.RWMutex
	embedder embedding.Embedder
	keys     map[memoryKey]int
	entries  []memoryEntry
}

var (
	_ Index        = (*MemoryIndex)(nil)
	_ SourceLister = (*MemoryIndex)(nil)
)

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex(embedder embedding.Embedder) *MemoryIndex {
	return &MemoryIndex{embedder: embedder, keys: make(map[memoryKey]int)}
}

// Upsert stores or replaces a chunk keyed by file, page and chunk index
func (m *MemoryIndex) Upsert(_ context.Context, chunk models.Chunk, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty vector for chunk %d of %s", chunk.Metadata.ChunkIndex, chunk.Metadata.FilePath)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := memoryKey{chunk.Metadata.FilePath, chunk.Metadata.PageNumber, chunk.Metadata.ChunkIndex}
	entry := memoryEntry{chunk: chunk, vec: append([]float32(nil), vec...)}
	if i, ok := m.keys[key]; ok {
		m.entries[i] = entry
		return nil
	}
	m.keys[key] = len(m.entries)
	m.entries = append(m.entries, entry)
	return nil
}

// Query embeds text and returns up to k chunks by descending cosine similarity.
// Ties keep insertion order.
func (m *MemoryIndex) Query(ctx context.Context, text string, k int) ([]models.RetrievalResult, error) {
	vec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	m.mu.RLock()
	results := make([]models.RetrievalResult, 0, len(m.entries))
	for _, e := range m.entries {
		results = append(results, models.RetrievalResult{
			Chunk: e.chunk,
			Score: embedding.Cosine(vec, e.vec),
		})
	}
	m.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of stored chunks
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sources lists the distinct source identifiers in sorted order
func (m *MemoryIndex) Sources(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var sources []string
	for _, e := range m.entries {
		if s := e.chunk.Metadata.Source; !seen[s] {
			seen[s] = true
			sources = append(sources, s)
		}
	}
	sort.Strings(sources)
	return sources, nil
}
