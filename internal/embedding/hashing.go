package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// DefaultHashingDimensions matches the width of the default Ollama model
const DefaultHashingDimensions = 384

// HashingEmbedder is an offline bag-of-words embedder. Each lower-cased word
// is hashed into one of Dimensions buckets and the counts are L2-normalized.
type HashingEmbedder struct {
	Dimensions int
}

var _ Embedder = (*HashingEmbedder)(nil)

// NewHashingEmbedder creates a hashing embedder; dims <= 0 selects the default
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = DefaultHashingDimensions
	}
	return &HashingEmbedder{Dimensions: dims}
}

// Embed never fails; text without words yields a zero vector
func (h *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.Dimensions)
	for _, word := range tokenize(text) {
		hasher := fnv.New32a()
		hasher.Write([]byte(word))
		vec[hasher.Sum32()%uint32(h.Dimensions)]++
	}
	return Normalize(vec), nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
