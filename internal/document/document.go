// Package document turns raw uploaded bytes into page-level text.
package document

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedFormat is returned for file types no loader handles.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// namespace scopes document IDs so they never collide with other UUIDv5 users.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/bull/docchat/document"))

// Page is the extracted text of a single page or section.
type Page struct {
	Number int
	Text   string
}

// Document is a loaded document ready for chunking.
type Document struct {
	ID    string // UUIDv5 of the raw bytes; identical uploads share an ID
	Name  string
	Pages []Page
}

// Loader extracts page-level text from a raw document payload.
type Loader interface {
	Load(ctx context.Context, data []byte) ([]Page, error)
}

// LoaderFor returns the loader registered for the file extension of name.
func LoaderFor(name string) (Loader, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return PDFLoader{}, nil
	case ".md", ".markdown":
		return NewMarkdownLoader(), nil
	case ".txt", ".text":
		return TextLoader{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Supported reports whether name has an extension LoaderFor accepts.
func Supported(name string) bool {
	_, err := LoaderFor(name)
	return err == nil
}

// Load picks a loader by file name and builds a Document from data.
func Load(ctx context.Context, name string, data []byte) (*Document, error) {
	loader, err := LoaderFor(name)
	if err != nil {
		return nil, err
	}

	pages, err := loader.Load(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	return &Document{
		ID:    DocumentID(data),
		Name:  name,
		Pages: pages,
	}, nil
}

// DocumentID derives a stable identifier from the document bytes.
func DocumentID(data []byte) string {
	return uuid.NewSHA1(namespace, data).String()
}
