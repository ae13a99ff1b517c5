// Package docsource fetches the documentation corpus used to ground answers.
package docsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/persona-cli/internal/core/ports/driven"
	"github.com/custodia-labs/persona-cli/internal/telemetry"
)

// Ensure sources implement the interface.
var (
	_ driven.DocsSource = (*HTTPSource)(nil)
	_ driven.DocsSource = (*FileSource)(nil)
)

// Defaults for the remote corpus.
const (
	DefaultURL     = "https://console.groq.com/llms-full.txt"
	DefaultTimeout = 30 * time.Second

	// maxCorpusBytes bounds how much of the response is read.
	maxCorpusBytes = 32 << 20
)

// New returns a source for location. Plain paths and file:// URLs read from
// disk, anything else is fetched over HTTP.
func New(location string) driven.DocsSource {
	if location == "" {
		location = DefaultURL
	}
	if path, ok := strings.CutPrefix(location, "file://"); ok {
		return NewFileSource(path)
	}
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return NewFileSource(location)
	}
	return NewHTTPSource(location, nil)
}

// HTTPSource downloads the corpus with a single GET.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a source for url. A nil client uses a traced
// client with DefaultTimeout.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{
			Timeout:   DefaultTimeout,
			Transport: telemetry.Transport(nil),
		}
	}
	return &HTTPSource{url: url, client: client}
}

// Fetch downloads the corpus text.
func (s *HTTPSource) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain, text/markdown;q=0.9, */*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch docs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch docs: %s returned status %d", s.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCorpusBytes))
	if err != nil {
		return "", fmt.Errorf("read docs: %w", err)
	}
	return string(body), nil
}

// Location returns the corpus URL.
func (s *HTTPSource) Location() string {
	return s.url
}

// FileSource reads the corpus from a local file.
type FileSource struct {
	path string
}

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads the file.
func (s *FileSource) Fetch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("read docs: %w", err)
	}
	return string(data), nil
}

// Location returns the file path.
func (s *FileSource) Location() string {
	return s.path
}
