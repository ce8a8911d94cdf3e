package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

// ErrInvalidSource is returned when a source reference cannot be parsed.
var ErrInvalidSource = errors.New("invalid github source")

// Source identifies a single file in a GitHub repository.
type Source struct {
	Owner string
	Repo  string
	Path  string
	Ref   string // Branch, tag, or commit; empty means the default branch
}

// ParseSource parses "owner/repo/path/to/file.md[@ref]".
func ParseSource(s string) (Source, error) {
	ref := ""
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s, ref = s[:i], s[i+1:]
		if ref == "" {
			return Source{}, fmt.Errorf("%w: empty ref", ErrInvalidSource)
		}
	}

	parts := strings.SplitN(strings.Trim(s, "/"), "/", 3)
	if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Source{}, fmt.Errorf("%w: want owner/repo/path, got %q", ErrInvalidSource, s)
	}

	return Source{Owner: parts[0], Repo: parts[1], Path: parts[2], Ref: ref}, nil
}

// String returns the source in ParseSource form.
func (s Source) String() string {
	out := path.Join(s.Owner, s.Repo, s.Path)
	if s.Ref != "" {
		out += "@" + s.Ref
	}
	return out
}

// FetchedFile is a file downloaded from GitHub.
type FetchedFile struct {
	Name    string // Base name, used to pick a document loader
	Path    string
	SHA     string // Git blob SHA
	Content []byte
}

// Fetcher downloads individual documents from GitHub repositories.
type Fetcher struct {
	client *Client
}

// NewFetcher creates a new document fetcher
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchFile downloads the file named by src. Files too large for the contents
// API to inline are streamed through the download endpoint instead.
func (f *Fetcher) FetchFile(ctx context.Context, src Source) (*FetchedFile, error) {
	var opts *github.RepositoryContentGetOptions
	if src.Ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: src.Ref}
	}

	fileContent, dirContents, _, err := f.client.Repositories.GetContents(ctx, src.Owner, src.Repo, src.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", src, err)
	}
	if fileContent == nil {
		if dirContents != nil {
			return nil, fmt.Errorf("%s is a directory", src)
		}
		return nil, fmt.Errorf("no file content returned for %s", src)
	}

	var content []byte
	if fileContent.GetEncoding() == "none" {
		content, err = f.download(ctx, src, opts)
	} else {
		var decoded string
		decoded, err = fileContent.GetContent()
		content = []byte(decoded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", src, err)
	}

	return &FetchedFile{
		Name:    path.Base(src.Path),
		Path:    src.Path,
		SHA:     fileContent.GetSHA(),
		Content: content,
	}, nil
}

func (f *Fetcher) download(ctx context.Context, src Source, opts *github.RepositoryContentGetOptions) ([]byte, error) {
	rc, _, err := f.client.Repositories.DownloadContents(ctx, src.Owner, src.Repo, src.Path, opts)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
