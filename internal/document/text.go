package document

import (
	"context"
	"strings"
	"unicode/utf8"
)

// TextLoader loads plain text. Form feeds separate pages, the convention
// pdftotext and most print pipelines use.
type TextLoader struct{}

// Load splits data on form feed characters. Page numbers start at 1.
func (TextLoader) Load(ctx context.Context, data []byte) ([]Page, error) {
	content := string(data)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "�")
	}

	parts := strings.Split(content, "\f")
	pages := make([]Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, Page{Number: i + 1, Text: part})
	}
	return pages, nil
}
