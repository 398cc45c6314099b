package conversation

import (
	"context"
	"fmt"
	"strings"

	"ragnotes/internal/embedding"
)

// DefaultThreshold is the cosine similarity a query must exceed to continue a topic
const DefaultThreshold = 0.7

// Detector judges topic continuity by comparing embeddings
type Detector struct {
	Embedder  embedding.Embedder
	Threshold float64
}

// NewDetector creates a detector that uses threshold as given
func NewDetector(e embedding.Embedder, threshold float64) *Detector {
	return &Detector{Embedder: e, Threshold: threshold}
}

// IsContinuous reports whether query continues the topic of the prior user
// turns. With no prior text it is false. Both texts are embedded separately,
// normalized and compared by cosine similarity against the threshold.
func (d *Detector) IsContinuous(ctx context.Context, priorUserTurns []string, query string) (bool, error) {
	prior := strings.Join(priorUserTurns, "\n")
	if strings.TrimSpace(prior) == "" {
		return false, nil
	}

	sim, err := d.Similarity(ctx, prior, query)
	if err != nil {
		return false, err
	}
	return sim > d.Threshold, nil
}

// Similarity returns the cosine similarity of the normalized embeddings of a and b
func (d *Detector) Similarity(ctx context.Context, a, b string) (float64, error) {
	va, err := d.Embedder.Embed(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("failed to embed prior turns: %w", err)
	}
	vb, err := d.Embedder.Embed(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("failed to embed query: %w", err)
	}

	na := embedding.Normalize(append([]float32(nil), va...))
	nb := embedding.Normalize(append([]float32(nil), vb...))
	return embedding.Cosine(na, nb), nil
}
