package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// MarkdownLoader treats each H1/H2 section of a markdown document as a page.
// Every section is prefixed with its header path so a chunk cut from it keeps
// the context of where it came from.
type MarkdownLoader struct {
	parser goldmark.Markdown
}

// NewMarkdownLoader creates a new markdown loader configured with goldmark parser.
func NewMarkdownLoader() *MarkdownLoader {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &MarkdownLoader{
		parser: md,
	}
}

// Load splits markdown at H1 and H2 boundaries. Pages are numbered from 1 in
// document order. A document without headers is a single page; text before the
// first header becomes its own leading page.
func (l *MarkdownLoader) Load(ctx context.Context, source []byte) ([]Page, error) {
	reader := text.NewReader(source)
	doc := l.parser.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	if len(tree.Items) == 0 {
		return []Page{{Number: 1, Text: string(source)}}, nil
	}

	var sections []string
	if first := findHeaderByID(doc, string(tree.Items[0].ID)); first != nil {
		if preamble := strings.TrimSpace(string(source[:lineStart(source, first.Lines().At(0).Start)])); preamble != "" {
			sections = append(sections, preamble)
		}
	}
	l.extractSections(doc, source, tree.Items, nil, &sections)

	pages := make([]Page, len(sections))
	for i, s := range sections {
		pages[i] = Page{Number: i + 1, Text: s}
	}
	return pages, nil
}

// extractSections recursively walks TOC items to extract content with header paths.
func (l *MarkdownLoader) extractSections(doc ast.Node, source []byte, items toc.Items, ancestors []string, sections *[]string) {
	for i, item := range items {
		currentPath := append(append([]string(nil), ancestors...), string(item.Title))

		headerNode := findHeaderByID(doc, string(item.ID))
		if headerNode == nil {
			continue
		}

		start := headerNode.Lines().At(0)
		var end text.Segment

		if i+1 < len(items) {
			if next := findHeaderByID(doc, string(items[i+1].ID)); next != nil {
				end = next.Lines().At(0)
			}
		} else {
			end = findNextHeaderBoundary(doc, headerNode, headerNode.(*ast.Heading).Level)
		}

		// A parent section stops at its first child; the child is its own page.
		if len(item.Items) > 0 {
			if child := findHeaderByID(doc, string(item.Items[0].ID)); child != nil {
				end = child.Lines().At(0)
			}
		}

		content := extractContent(source, start, end)
		*sections = append(*sections, fmt.Sprintf("%s\n\n%s", formatHeaderPath(currentPath), content))

		if len(item.Items) > 0 {
			l.extractSections(doc, source, item.Items, currentPath, sections)
		}
	}
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Installation", "Prerequisites"] -> "# Installation > ## Prerequisites"
func formatHeaderPath(path []string) string {
	parts := make([]string, 0, len(path))
	for i, segment := range path {
		parts = append(parts, fmt.Sprintf("%s %s", strings.Repeat("#", i+1), segment))
	}
	return strings.Join(parts, " > ")
}

// findHeaderByID locates a heading node by its auto-generated ID.
func findHeaderByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			headingID, ok := n.AttributeString("id")
			if ok && string(headingID.([]byte)) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// findNextHeaderBoundary finds the next header at or above currentLevel after current.
func findNextHeaderBoundary(root ast.Node, current ast.Node, currentLevel int) text.Segment {
	var nextHeader ast.Node
	foundCurrent := false

	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}

		if !foundCurrent {
			foundCurrent = n == current
			return ast.WalkContinue, nil
		}

		if n.(*ast.Heading).Level <= currentLevel {
			nextHeader = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	if nextHeader != nil {
		return nextHeader.Lines().At(0)
	}
	return text.Segment{}
}

// extractContent extracts the body between a heading and the line holding the
// next boundary heading. A zero end segment means "to end of document".
func extractContent(source []byte, heading text.Segment, end text.Segment) string {
	var buf bytes.Buffer

	if end.Start == 0 && end.Stop == 0 {
		buf.Write(source[heading.Stop:])
	} else {
		buf.Write(source[heading.Stop:lineStart(source, end.Start)])
	}

	return strings.TrimSpace(buf.String())
}

// lineStart returns the offset of the first byte of the line containing pos.
func lineStart(source []byte, pos int) int {
	return bytes.LastIndexByte(source[:pos], '\n') + 1
}
