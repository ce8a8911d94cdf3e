// Package chunker splits loaded documents into bounded, page-attributed chunks.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/bull/docchat/internal/document"
	"github.com/bull/docchat/internal/storage"
)

const (
	// DefaultMaxRunes is the chunk size used when none is configured.
	DefaultMaxRunes = 1000

	// DefaultOverlapRunes is the overlap between adjacent chunks of a page.
	DefaultOverlapRunes = 0
)

// ErrEmptyDocument is returned when no page has text left after normalization.
var ErrEmptyDocument = errors.New("document has no extractable text")

// Chunker splits page text into windows of at most maxRunes runes.
// Windows never cross page boundaries.
type Chunker struct {
	maxRunes     int
	overlapRunes int
}

// New creates a Chunker. A non-positive maxRunes selects DefaultMaxRunes; an
// overlap outside [0, maxRunes) is reset to 0.
func New(maxRunes, overlapRunes int) *Chunker {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}
	if overlapRunes < 0 || overlapRunes >= maxRunes {
		overlapRunes = 0
	}
	return &Chunker{
		maxRunes:     maxRunes,
		overlapRunes: overlapRunes,
	}
}

// MaxRunes returns the maximum chunk length in runes.
func (c *Chunker) MaxRunes() int {
	return c.maxRunes
}

// Chunk normalizes each page and splits it into chunks. Ordinals increase
// strictly across the whole document. Pages that normalize to empty text are
// skipped; if every page does, ErrEmptyDocument is returned.
func (c *Chunker) Chunk(doc *document.Document) ([]storage.Chunk, error) {
	var chunks []storage.Chunk

	for _, page := range doc.Pages {
		text := Normalize(page.Text)
		if text == "" {
			continue
		}

		for _, piece := range c.split(text) {
			ordinal := len(chunks)
			chunks = append(chunks, storage.Chunk{
				ID:          ChunkID(doc.ID, ordinal),
				SourceDocID: doc.ID,
				PageNumber:  max(page.Number, 0),
				Text:        piece,
				Ordinal:     ordinal,
			})
		}
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, doc.Name)
	}
	return chunks, nil
}

// ChunkID derives a chunk identifier from its document and ordinal, so that
// re-ingesting the same bytes reproduces the same IDs.
func ChunkID(docID string, ordinal int) string {
	ns, err := uuid.Parse(docID)
	if err != nil {
		ns = uuid.NewSHA1(uuid.Nil, []byte(docID))
	}
	return uuid.NewSHA1(ns, fmt.Appendf(nil, "chunk-%d", ordinal)).String()
}

// Normalize collapses every run of whitespace to a single space and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// split cuts normalized text into windows. A window that would end inside a
// word is shortened to the last space when one exists.
func (c *Chunker) split(text string) []string {
	runes := []rune(text)
	if len(runes) <= c.maxRunes {
		return []string{text}
	}

	var out []string
	for start := 0; start < len(runes); {
		end := min(start+c.maxRunes, len(runes))
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			if cut := lastSpace(runes[start:end]); cut > 0 {
				end = start + cut
			}
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
		if end >= len(runes) {
			break
		}

		next := end - c.overlapRunes
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// lastSpace returns the index of the last space in runes, or -1.
func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}
