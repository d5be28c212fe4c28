package axe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/a11ytester/a11ytester/pkg/defaults"
	"github.com/a11ytester/a11ytester/pkg/duration"
)

// Source supplies the axe-core bundle as JavaScript source text.
type Source interface {
	Script(ctx context.Context) (string, error)
}

// NewSource returns a FileSource when path is set, otherwise a URLSource for
// rawURL (defaults.AxeScriptURL when empty).
func NewSource(path, rawURL string) Source {
	if path != "" {
		return FileSource{Path: path}
	}
	if rawURL == "" {
		rawURL = defaults.AxeScriptURL
	}
	return NewURLSource(rawURL, nil)
}

// StaticSource serves a fixed script.
type StaticSource string

// Script implements Source.
func (s StaticSource) Script(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", fmt.Errorf("%w: empty script", ErrScriptUnavailable)
	}
	return string(s), nil
}

// FileSource reads the bundle from disk on every call so a replaced file is
// picked up without a restart.
type FileSource struct {
	Path string
}

// Script implements Source.
func (s FileSource) Script(context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrScriptUnavailable, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrScriptUnavailable, s.Path)
	}
	return string(data), nil
}

// URLSource downloads the bundle once and keeps it for the life of the
// process. Failed downloads are not cached.
type URLSource struct {
	url    string
	client *http.Client

	mu     sync.Mutex
	script string
}

// NewURLSource creates a URLSource. A nil client gets a default with
// duration.ScriptFetch as its timeout.
func NewURLSource(rawURL string, client *http.Client) *URLSource {
	if client == nil {
		client = &http.Client{Timeout: duration.ScriptFetch}
	}
	return &URLSource{url: rawURL, client: client}
}

// URL returns the location the bundle is fetched from.
func (s *URLSource) URL() string { return s.url }

// Script implements Source.
func (s *URLSource) Script(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.script != "" {
		return s.script, nil
	}

	script, err := s.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrScriptUnavailable, err)
	}
	s.script = script
	return script, nil
}

func (s *URLSource) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", defaults.UAMinimal)
	req.Header.Set("Accept", defaults.ContentTypeJavaScript+", */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: unexpected status %s", s.url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, defaults.AxeScriptMaxBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", s.url, err)
	}
	if len(data) > defaults.AxeScriptMaxBytes {
		return "", fmt.Errorf("%s exceeds %d bytes", s.url, defaults.AxeScriptMaxBytes)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", fmt.Errorf("%s returned an empty body", s.url)
	}
	return string(data), nil
}
