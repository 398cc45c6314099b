package processor

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the target chunk length in characters
	DefaultChunkSize = 600
	// DefaultChunkOverlap is the number of characters carried between consecutive chunks
	DefaultChunkOverlap = 180
	// DefaultMinLength is the shortest trimmed chunk that survives the filter
	DefaultMinLength = 50
)

// DefaultSeparators break at sentence-ending punctuation first and fall back
// to lines, words and finally single characters.
var DefaultSeparators = []string{".", "!", "?", "\n", " ", ""}

// Piece is a chunk of text and its character offset within the split input
type Piece struct {
	Text  string
	Start int
}

// Splitter splits text recursively on a list of separators, merging the
// resulting pieces into chunks of at most ChunkSize characters with
// ChunkOverlap characters of shared context between neighbours.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	MinLength    int
	Separators   []string
}

// SplitOption configures a Splitter
type SplitOption func(*Splitter)

// WithChunkSize sets the target chunk length
func WithChunkSize(n int) SplitOption {
	return func(s *Splitter) { s.ChunkSize = n }
}

// WithChunkOverlap sets the overlap between consecutive chunks
func WithChunkOverlap(n int) SplitOption {
	return func(s *Splitter) { s.ChunkOverlap = n }
}

// WithMinLength sets the minimum trimmed chunk length
func WithMinLength(n int) SplitOption {
	return func(s *Splitter) { s.MinLength = n }
}

// WithSeparators replaces the separator hierarchy
func WithSeparators(seps ...string) SplitOption {
	return func(s *Splitter) { s.Separators = seps }
}

// NewSplitter creates a splitter with the default sizes
func NewSplitter(opts ...SplitOption) *Splitter {
	s := &Splitter{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		MinLength:    DefaultMinLength,
		Separators:   DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ChunkOverlap >= s.ChunkSize {
		s.ChunkOverlap = s.ChunkSize / 2
	}
	return s
}

// Split divides text into chunks. Chunks whose trimmed length is below
// MinLength are dropped. Start is counted in characters, not bytes.
func (s *Splitter) Split(text string) []Piece {
	chunks := s.split(text, s.Separators)

	var pieces []Piece
	searchFrom := 0
	for _, chunk := range chunks {
		idx := strings.Index(text[searchFrom:], chunk)
		start := -1
		if idx >= 0 {
			start = utf8.RuneCountInString(text[:searchFrom+idx])
			searchFrom += idx + 1
			for searchFrom < len(text) && !utf8.RuneStart(text[searchFrom]) {
				searchFrom++
			}
		}

		if runeLen(strings.TrimSpace(chunk)) < s.MinLength {
			continue
		}
		pieces = append(pieces, Piece{Text: chunk, Start: start})
	}
	return pieces
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, part := range splitKeep(text, separator) {
		if runeLen(part) < s.ChunkSize {
			good = append(good, part)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, part)
		} else {
			final = append(final, s.split(part, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge joins small parts into chunks, keeping a tail of up to ChunkOverlap
// characters from each emitted chunk as the head of the next one.
func (s *Splitter) merge(parts []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, part := range parts {
		n := runeLen(part)
		if total+n > s.ChunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.ChunkOverlap || (total+n > s.ChunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, part)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeep splits text after each separator, keeping the separator on the
// preceding part. An empty separator splits into characters.
func splitKeep(text, sep string) []string {
	var parts []string
	if sep == "" {
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}
	for _, p := range strings.SplitAfter(text, sep) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
