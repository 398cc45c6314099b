// Package summarize splits books into chapters along their table of contents
// and turns each chapter, then the whole book, into structured notes.
package summarize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"ragnotes/internal/models"
)

// nonChapterKeywords mark front and back matter. A title containing any of
// them is never a chapter, whatever its level.
var nonChapterKeywords = []string{
	"contents", "acknowledgments", "introduction",
	"preface", "foreword", "notes",
	"bibliography", "index", "references", "epilogue",
}

// IsChapter reports whether a table of contents entry opens a chapter
func IsChapter(level int, title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))

	if utf8.RuneCountInString(t) == 1 {
		r, _ := utf8.DecodeRuneInString(t)
		if unicode.IsLetter(r) {
			return false
		}
	}

	for _, kw := range nonChapterKeywords {
		if strings.Contains(t, kw) {
			return false
		}
	}

	if strings.Contains(t, "chapter") || strings.Contains(t, "appendix") || strings.HasPrefix(t, "part") {
		return true
	}
	return level >= 2
}

// Segment derives chapter page ranges from a table of contents. A chapter
// ends two pages before the next chapter's printed start page (converted to a
// 0-based index), or on the last page when no chapter follows. Entries whose
// start page lies outside the document are dropped.
func Segment(toc []models.TocEntry, pageCount int) []models.Chapter {
	var chapters []models.Chapter
	for i, e := range toc {
		if !IsChapter(e.Level, e.Title) {
			continue
		}

		start := e.Page - 1
		if start < 0 {
			start = 0
		}
		if pageCount > 0 && start >= pageCount {
			continue
		}

		end := pageCount - 1
		if next, ok := nextChapterPage(toc, i); ok {
			end = next - 2
		}
		if end > pageCount-1 {
			end = pageCount - 1
		}
		if end < start {
			end = start
		}

		chapters = append(chapters, models.Chapter{
			Title:      e.Title,
			Level:      e.Level,
			Page:       e.Page,
			StartIndex: start,
			EndIndex:   end,
		})
	}
	return chapters
}

func nextChapterPage(toc []models.TocEntry, i int) (int, bool) {
	for _, e := range toc[i+1:] {
		if IsChapter(e.Level, e.Title) {
			return e.Page, true
		}
	}
	return 0, false
}
