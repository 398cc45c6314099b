// Package retrieval builds grounded prompts from the vector index and runs
// knowledge-base chat sessions.
package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ragnotes/internal/database"
	"ragnotes/internal/llm"
	"ragnotes/internal/metrics"
	"ragnotes/internal/models"
)

const (
	// DefaultTopK is the number of chunks retrieved per question
	DefaultTopK = 3
	// ContextSeparator joins retrieved chunk texts in the grounding context
	ContextSeparator = "\n\n---\n\n"

	unknownSource = "unknown"
	unknownPage   = "N/A"
)

// Grounding is the retrieved context for one question
type Grounding struct {
	Query     string
	Text      string
	Citations []models.Citation
	Results   []models.RetrievalResult
}

// Assembler retrieves chunks for a question and renders the answer prompt
type Assembler struct {
	Index   database.Index
	TopK    int
	metrics *metrics.Metrics
}

// NewAssembler creates an assembler; k <= 0 selects DefaultTopK. m may be nil.
func NewAssembler(index database.Index, k int, m *metrics.Metrics) *Assembler {
	if k <= 0 {
		k = DefaultTopK
	}
	return &Assembler{Index: index, TopK: k, metrics: m}
}

// MergeQuery prefixes query with the prior user turns when the topic continues
func MergeQuery(priorUserTurns []string, query string, continuous bool) string {
	if !continuous || len(priorUserTurns) == 0 {
		return query
	}
	return strings.Join(priorUserTurns, "\n") + "\n" + query
}

// BuildContext queries the index with the merged question and joins the
// results into grounding text and citations
func (a *Assembler) BuildContext(ctx context.Context, query string, priorUserTurns []string, continuous bool) (*Grounding, error) {
	merged := MergeQuery(priorUserTurns, query, continuous)

	start := time.Now()
	results, err := a.Index.Query(ctx, merged, a.TopK)
	if a.metrics != nil {
		a.metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	texts := make([]string, 0, len(results))
	citations := make([]models.Citation, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Chunk.Content)
		citations = append(citations, citationFor(r.Chunk))
	}

	return &Grounding{
		Query:     merged,
		Text:      strings.Join(texts, ContextSeparator),
		Citations: citations,
		Results:   results,
	}, nil
}

// BuildPrompt fills the grounded-answer template with the context and the
// original, unmerged question
func (a *Assembler) BuildPrompt(grounding, query string) string {
	return llm.KnowledgeBasePrompt(grounding, query)
}

func citationFor(c models.Chunk) models.Citation {
	cit := models.Citation{
		Content: strings.ReplaceAll(c.Content, "\n", " "),
		Source:  c.Metadata.Source,
		Page:    unknownPage,
	}
	if cit.Source == "" {
		cit.Source = unknownSource
	}
	if c.Metadata.PageNumber > 0 {
		cit.Page = strconv.Itoa(c.Metadata.PageNumber)
	}
	return cit
}
