package processor

import (
	"fmt"
	"regexp"
	"strings"

	"ragnotes/internal/models"

	"github.com/ledongthuc/pdf"
)

// contentsPageTitles is the number of outline titles a page must contain to
// be treated as a table of contents rather than a chapter opening.
const contentsPageTitles = 3

var (
	spaceRe    = regexp.MustCompile(`[ \t\f\r]+`)
	blankRunRe = regexp.MustCompile(`\n\s*\n+`)
)

// PDFExtractor reads page text and outlines from PDF files
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// PDFDocument is an opened PDF's page count and table of contents. It holds
// no file handle; page text is read on demand.
type PDFDocument struct {
	Path    string
	Pages   int
	Entries []models.TocEntry
}

// PageCount returns the number of pages
func (d *PDFDocument) PageCount() int {
	return d.Pages
}

// TOC returns the resolved outline entries in document order
func (d *PDFDocument) TOC() []models.TocEntry {
	return d.Entries
}

// ExtractPages returns the text of every non-empty page, numbered from 1
func (p *PDFExtractor) ExtractPages(path string) ([]models.Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pages, err := readPages(r, 1, r.NumPage())
	if err != nil {
		return nil, fmt.Errorf("failed to extract pages from %s: %w", path, err)
	}
	return pages, nil
}

// Open reads the page count and outline of a PDF. Outline entries carry no
// destinations in this reader, so each entry's page is resolved to the first
// page at or after the previous entry's page whose text contains the title.
func (p *PDFExtractor) Open(path string) (*PDFDocument, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	doc := &PDFDocument{Path: path, Pages: r.NumPage()}

	var entries []models.TocEntry
	flattenOutline(r.Outline(), 0, &entries)
	if len(entries) == 0 {
		return doc, nil
	}

	pages, err := readPages(r, 1, doc.Pages)
	if err != nil {
		return nil, fmt.Errorf("failed to read pages of %s: %w", path, err)
	}
	texts := make(map[int]string, len(pages))
	for _, pg := range pages {
		texts[pg.Number] = foldText(pg.Text)
	}

	doc.Entries = resolveTOC(entries, texts, doc.Pages)
	return doc, nil
}

// PageRangeText reopens the document and returns the text of the 0-based,
// inclusive page range. The handle is closed before returning.
func (d *PDFDocument) PageRangeText(start, end int) (string, error) {
	if start < 0 || end < start || end >= d.Pages {
		return "", fmt.Errorf("page range %d-%d outside document of %d pages", start, end, d.Pages)
	}

	f, r, err := pdf.Open(d.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pages, err := readPages(r, start+1, end+1)
	if err != nil {
		return "", err
	}

	texts := make([]string, 0, len(pages))
	for _, pg := range pages {
		texts = append(texts, pg.Text)
	}
	return strings.TrimSpace(strings.Join(texts, "\n")), nil
}

// readPages extracts pages from..to (1-based, inclusive), skipping null pages
func readPages(r *pdf.Reader, from, to int) ([]models.Page, error) {
	var pages []models.Page
	for i := from; i <= to; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text of page %d: %w", i, err)
		}
		text = normalizeWhitespace(text)
		if text == "" {
			continue
		}
		pages = append(pages, models.Page{Number: i, Text: text})
	}
	return pages, nil
}

// normalizeWhitespace collapses runs of spaces and blank lines but keeps
// single line breaks for the splitter
func normalizeWhitespace(text string) string {
	text = spaceRe.ReplaceAllString(text, " ")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func flattenOutline(o pdf.Outline, level int, out *[]models.TocEntry) {
	if level > 0 && strings.TrimSpace(o.Title) != "" {
		*out = append(*out, models.TocEntry{Level: level, Title: strings.TrimSpace(o.Title)})
	}
	for _, child := range o.Child {
		flattenOutline(child, level+1, out)
	}
}

func resolveTOC(entries []models.TocEntry, texts map[int]string, pageCount int) []models.TocEntry {
	skip := contentsPages(entries, texts)

	resolved := make([]models.TocEntry, len(entries))
	prev := 1
	for i, e := range entries {
		e.Page = prev
		title := foldText(e.Title)
		for p := prev; p <= pageCount; p++ {
			if skip[p] {
				continue
			}
			if strings.Contains(texts[p], title) {
				e.Page = p
				break
			}
		}
		prev = e.Page
		resolved[i] = e
	}
	return resolved
}

// contentsPages marks pages that list several outline titles
func contentsPages(entries []models.TocEntry, texts map[int]string) map[int]bool {
	skip := make(map[int]bool)
	if len(entries) < contentsPageTitles {
		return skip
	}
	for p, text := range texts {
		hits := 0
		for _, e := range entries {
			if strings.Contains(text, foldText(e.Title)) {
				hits++
			}
		}
		if hits >= contentsPageTitles {
			skip[p] = true
		}
	}
	return skip
}

func foldText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
