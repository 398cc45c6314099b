package database

import (
	"context"

	"ragnotes/internal/models"
)

// Index stores chunk vectors and answers nearest-neighbour queries.
// Query results are ordered by descending Score.
type Index interface {
	Upsert(ctx context.Context, chunk models.Chunk, vec []float32) error
	Query(ctx context.Context, text string, k int) ([]models.RetrievalResult, error)
}

// SourceLister is implemented by indexes that can list the documents they hold
type SourceLister interface {
	Sources(ctx context.Context) ([]string, error)
}
