// Package ingest turns new PDF documents in a folder into indexed chunks.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ragnotes/internal/database"
	"ragnotes/internal/embedding"
	"ragnotes/internal/ledger"
	"ragnotes/internal/metrics"
	"ragnotes/internal/models"
	"ragnotes/internal/processor"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const unknownFilePath = "unknown"

// PageExtractor returns the per-page text of a document
type PageExtractor interface {
	ExtractPages(path string) ([]models.Page, error)
}

// Pipeline ingests documents not yet listed in the ledger.
//
// By default every new candidate is recorded in the ledger before any of them
// is processed, so a document whose extraction fails is never retried. With
// CommitOnSuccess a document is recorded only after all of its chunks are
// indexed.
type Pipeline struct {
	Extractor       PageExtractor
	Splitter        *processor.Splitter
	Embedder        embedding.Embedder
	Index           database.Index
	Ledger          *ledger.Ledger
	CommitOnSuccess bool

	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewPipeline wires an ingestion pipeline. m may be nil.
func NewPipeline(ext PageExtractor, splitter *processor.Splitter, emb embedding.Embedder, idx database.Index,
	l *ledger.Ledger, commitOnSuccess bool, log zerolog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		Extractor:       ext,
		Splitter:        splitter,
		Embedder:        emb,
		Index:           idx,
		Ledger:          l,
		CommitOnSuccess: commitOnSuccess,
		log:             log,
		metrics:         m,
	}
}

// Discover lists the PDF files directly inside folder, sorted by name
func Discover(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder %s: %w", folder, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(folder, e.Name()))
	}
	return paths, nil
}

// Ingest indexes the new documents in folder and returns the number of chunks
// stored. Extraction failures skip the document; embedding and index failures
// abort the run.
func (p *Pipeline) Ingest(ctx context.Context, folder string) (int, error) {
	log := p.log.With().Str("run", uuid.NewString()).Str("folder", folder).Logger()

	candidates, err := Discover(folder)
	if err != nil {
		return 0, err
	}

	var fresh []string
	for _, path := range candidates {
		if p.Ledger.Contains(path) {
			if p.metrics != nil {
				p.metrics.LedgerSkippedTotal.Inc()
			}
			continue
		}
		fresh = append(fresh, path)
	}
	if len(fresh) == 0 {
		log.Info().Int("candidates", len(candidates)).Msg("no new documents to ingest")
		return 0, nil
	}

	if !p.CommitOnSuccess {
		if err := p.Ledger.Append(fresh...); err != nil {
			return 0, err
		}
	}

	total := 0
	for _, path := range fresh {
		pages, err := p.Extractor.ExtractPages(path)
		if err != nil {
			log.Warn().Err(err).Str("document", path).Msg("skipping document, extraction failed")
			p.countDocument("failed")
			continue
		}

		chunks := ChunkDocument(p.Splitter, path, pages)
		for _, c := range chunks {
			vec, err := p.Embedder.Embed(ctx, c.Content)
			if err != nil {
				return total, fmt.Errorf("failed to embed chunk %d of %s: %w", c.Metadata.ChunkIndex, path, err)
			}
			if err := p.Index.Upsert(ctx, c, vec); err != nil {
				return total, err
			}
			total++
			if p.metrics != nil {
				p.metrics.IngestChunksTotal.Inc()
			}
		}

		if p.CommitOnSuccess {
			if err := p.Ledger.Append(path); err != nil {
				return total, err
			}
		}
		p.countDocument("indexed")
		log.Info().Str("document", path).Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("document indexed")
	}

	log.Info().Int("documents", len(fresh)).Int("chunks", total).Msg("ingestion finished")
	return total, nil
}

func (p *Pipeline) countDocument(status string) {
	if p.metrics != nil {
		p.metrics.IngestDocumentsTotal.WithLabelValues(status).Inc()
	}
}

// ChunkDocument splits each page and attaches source metadata. Chunk indices
// run across the whole document; newlines in chunk text become spaces.
func ChunkDocument(s *processor.Splitter, path string, pages []models.Page) []models.Chunk {
	filePath := ledger.Normalize(path)
	source := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))

	var chunks []models.Chunk
	for _, page := range pages {
		for _, piece := range s.Split(page.Text) {
			idx := len(chunks)
			meta := models.Metadata{
				Source:     source,
				FilePath:   filePath,
				PageNumber: page.Number,
				ChunkIndex: idx,
				StartIndex: piece.Start,
			}
			if meta.PageNumber <= 0 {
				meta.PageNumber = idx + 1
			}
			if meta.FilePath == "" {
				meta.FilePath = unknownFilePath
			}
			chunks = append(chunks, models.Chunk{
				Content:  strings.ReplaceAll(piece.Text, "\n", " "),
				Metadata: meta,
			})
		}
	}
	return chunks
}
