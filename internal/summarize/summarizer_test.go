package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ragnotes/internal/llm"
	"ragnotes/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocument struct {
	pages []string
	toc   []models.TocEntry
	reads [][2]int
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) TOC() []models.TocEntry { return d.toc }

func (d *fakeDocument) PageRangeText(start, end int) (string, error) {
	d.reads = append(d.reads, [2]int{start, end})
	return strings.Join(d.pages[start:end+1], "\n"), nil
}

// scriptedGenerator answers each prompt by looking up a marker it contains
type scriptedGenerator struct {
	failures map[string]int
	prompts  []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (*models.Notes, error) {
	g.prompts = append(g.prompts, prompt)
	for marker, left := range g.failures {
		if strings.Contains(prompt, marker) && left != 0 {
			if left > 0 {
				g.failures[marker] = left - 1
			}
			return nil, llm.ErrInvalidNotes
		}
	}
	return &models.Notes{Content: []models.Block{{Type: models.BlockParagraph, Text: fmt.Sprintf("notes %d", len(g.prompts))}}}, nil
}

func book() *fakeDocument {
	pages := make([]string, 12)
	for i := range pages {
		pages[i] = fmt.Sprintf("page-%d text", i+1)
	}
	pages[6], pages[7] = "", ""
	return &fakeDocument{
		pages: pages,
		toc: []models.TocEntry{
			{Level: 1, Title: "Contents", Page: 1},
			{Level: 1, Title: "Chapter 1: Tides é", Page: 2},
			{Level: 1, Title: "Chapter 2", Page: 7},
			{Level: 1, Title: "Chapter 3", Page: 9},
		},
	}
}

func newTestSummarizer(doc Document, gen Generator, out string) *Summarizer {
	retry := NewRetryController(3, -1, zerolog.Nop(), nil)
	opener := OpenerFunc(func(string) (Document, error) { return doc, nil })
	return NewSummarizer(opener, gen, retry, out, zerolog.Nop())
}

func TestSummarize_WritesChapterAndAggregateNotes(t *testing.T) {
	out := t.TempDir()
	doc := book()
	gen := &scriptedGenerator{failures: map[string]int{"page-10": 2}}

	summary, err := newTestSummarizer(doc, gen, out).Summarize(context.Background(), "/books/My Book.pdf")
	require.NoError(t, err)

	// chapter 2 (pages 7-8, blank) is skipped
	assert.Equal(t, [][2]int{{1, 5}, {6, 7}, {8, 11}}, doc.reads)
	require.Len(t, summary.Chapters, 2)
	assert.Equal(t, "Chapter 1: Tides é", summary.Chapters[0].Title)
	assert.Equal(t, "Chapter 3", summary.Chapters[1].Title)
	require.NotNil(t, summary.Aggregate)
	// 1 for chapter 1, 3 for chapter 3, 1 for the aggregate
	assert.Len(t, gen.prompts, 5)

	dir := filepath.Join(out, "My_Book")
	assert.Equal(t, dir, summary.OutputDir)
	for _, name := range []string{"Chapter_1__Tides_e.json", "Chapter_3.json", "My_Book_full.json"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		var notes models.Notes
		require.NoError(t, json.Unmarshal(data, &notes), name)
		assert.NotEmpty(t, notes.Content)
	}

	aggregatePrompt := gen.prompts[len(gen.prompts)-1]
	assert.Contains(t, aggregatePrompt, "### Chapter 1: Tides é\n{\"content\":")
	assert.Contains(t, aggregatePrompt, "### Chapter 3\n")
}

func TestSummarize_ChapterExhaustionAbortsBook(t *testing.T) {
	out := t.TempDir()
	gen := &scriptedGenerator{failures: map[string]int{"page-2": -1}}

	_, err := newTestSummarizer(book(), gen, out).Summarize(context.Background(), "book.pdf")

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Len(t, gen.prompts, 3)
	_, statErr := os.Stat(filepath.Join(out, "book", "book_full.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSummarize_AggregateExhaustion(t *testing.T) {
	gen := &scriptedGenerator{failures: map[string]int{"### Chapter": -1}}

	_, err := newTestSummarizer(book(), gen, t.TempDir()).Summarize(context.Background(), "book.pdf")

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, llm.ErrInvalidNotes)
}

func TestSummarize_NoTOC(t *testing.T) {
	doc := &fakeDocument{pages: []string{"a"}}
	_, err := newTestSummarizer(doc, &scriptedGenerator{}, t.TempDir()).Summarize(context.Background(), "x.pdf")
	assert.ErrorIs(t, err, ErrNoTableOfContents)
}

func TestSummarize_NoChapters(t *testing.T) {
	doc := &fakeDocument{
		pages: []string{"a", "b"},
		toc:   []models.TocEntry{{Level: 1, Title: "Preface", Page: 1}, {Level: 1, Title: "Index", Page: 2}},
	}
	_, err := newTestSummarizer(doc, &scriptedGenerator{}, t.TempDir()).Summarize(context.Background(), "x.pdf")
	assert.ErrorIs(t, err, ErrNoChapters)
}

func TestSummarize_OpenError(t *testing.T) {
	boom := errors.New("corrupt")
	s := NewSummarizer(OpenerFunc(func(string) (Document, error) { return nil, boom }),
		&scriptedGenerator{}, NewRetryController(1, -1, zerolog.Nop(), nil), t.TempDir(), zerolog.Nop())

	_, err := s.Summarize(context.Background(), "x.pdf")
	assert.ErrorIs(t, err, boom)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Cafe_creme", SanitizeFilename("Café crème"))
	assert.Equal(t, "a_b_c_d_e_f_g_h_i_j", SanitizeFilename(`a\b/c*d?e:f"g<h>i|j`))
	assert.Equal(t, "Ubersicht", SanitizeFilename("Übersicht"))
}
