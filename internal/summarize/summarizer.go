package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"ragnotes/internal/llm"
	"ragnotes/internal/models"
	"ragnotes/internal/processor"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNoTableOfContents is returned for documents without an outline
	ErrNoTableOfContents = errors.New("document has no table of contents")
	// ErrNoChapters is returned when no chapter produced notes
	ErrNoChapters = errors.New("no chapters were processed")
)

// Document is an opened book
type Document interface {
	PageCount() int
	TOC() []models.TocEntry
	PageRangeText(start, end int) (string, error)
}

// Opener opens documents by path
type Opener interface {
	OpenDocument(path string) (Document, error)
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(path string) (Document, error)

// OpenDocument calls f
func (f OpenerFunc) OpenDocument(path string) (Document, error) { return f(path) }

// PDFOpener opens PDFs with the given extractor
func PDFOpener(e *processor.PDFExtractor) Opener {
	return OpenerFunc(func(path string) (Document, error) {
		doc, err := e.Open(path)
		if err != nil {
			return nil, err
		}
		return doc, nil
	})
}

// Generator produces notes for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (*models.Notes, error)
}

// Summarizer produces per-chapter and whole-book notes and writes them as JSON
type Summarizer struct {
	Opener    Opener
	Generator Generator
	Retry     *RetryController
	OutputDir string

	log zerolog.Logger
}

// NewSummarizer creates a summarizer writing under outputDir
func NewSummarizer(opener Opener, gen Generator, retry *RetryController, outputDir string, log zerolog.Logger) *Summarizer {
	return &Summarizer{Opener: opener, Generator: gen, Retry: retry, OutputDir: outputDir, log: log}
}

// Summarize processes one book. Chapters are summarized in order, each saved
// as soon as it succeeds; a chapter that exhausts its budget aborts the book.
// The aggregate pass then runs over all chapter notes.
func (s *Summarizer) Summarize(ctx context.Context, path string) (*models.BookSummary, error) {
	doc, err := s.Opener.OpenDocument(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	toc := doc.TOC()
	if len(toc) == 0 {
		return nil, ErrNoTableOfContents
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	safeBase := SanitizeFilename(base)
	outDir := filepath.Join(s.OutputDir, safeBase)
	log := s.log.With().Str("document", base).Logger()

	summary := &models.BookSummary{Document: base, OutputDir: outDir}
	for _, ch := range Segment(toc, doc.PageCount()) {
		text, err := doc.PageRangeText(ch.StartIndex, ch.EndIndex)
		if err != nil {
			return nil, fmt.Errorf("failed to read chapter %q: %w", ch.Title, err)
		}
		if strings.TrimSpace(text) == "" {
			log.Warn().Str("chapter", ch.Title).Msg("skipping empty chapter")
			continue
		}

		prompt := llm.SummarizePrompt(text)
		notes, err := s.Retry.Run(ctx, "chapter", ch.Title, func(ctx context.Context) Outcome {
			return Classify(s.Generator.Generate(ctx, prompt))
		})
		if err != nil {
			return nil, fmt.Errorf("book could not be summarized: %w", err)
		}

		file := filepath.Join(outDir, SanitizeFilename(ch.Title)+".json")
		if err := writeJSON(file, notes); err != nil {
			return nil, err
		}
		log.Info().Str("chapter", ch.Title).Int("start", ch.StartIndex).Int("end", ch.EndIndex).Str("file", file).Msg("chapter summarized")

		summary.Chapters = append(summary.Chapters, models.ChapterSummary{Title: ch.Title, Summary: notes})
	}

	if len(summary.Chapters) == 0 {
		return nil, ErrNoChapters
	}

	input, err := aggregateInput(summary.Chapters)
	if err != nil {
		return nil, err
	}
	prompt := llm.SummarizePrompt(input)
	aggregate, err := s.Retry.Run(ctx, "aggregate", base, func(ctx context.Context) Outcome {
		return Classify(s.Generator.Generate(ctx, prompt))
	})
	if err != nil {
		return nil, fmt.Errorf("final summary failed: %w", err)
	}

	file := filepath.Join(outDir, safeBase+"_full.json")
	if err := writeJSON(file, aggregate); err != nil {
		return nil, err
	}
	log.Info().Int("chapters", len(summary.Chapters)).Str("file", file).Msg("book summarized")

	summary.Aggregate = aggregate
	return summary, nil
}

func aggregateInput(chapters []models.ChapterSummary) (string, error) {
	parts := make([]string, 0, len(chapters))
	for _, c := range chapters {
		data, err := json.Marshal(c.Summary)
		if err != nil {
			return "", fmt.Errorf("failed to encode notes of %q: %w", c.Title, err)
		}
		parts = append(parts, "### "+c.Title+"\n"+string(data))
	}
	return strings.Join(parts, "\n\n"), nil
}

func writeJSON(path string, notes *models.Notes) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode notes: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SanitizeFilename strips diacritics and replaces spaces and characters that
// are invalid in file names with underscores
func SanitizeFilename(name string) string {
	var sb strings.Builder
	for _, r := range norm.NFD.String(name) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case strings.ContainsRune(`\/*?:"<>| `, r):
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
