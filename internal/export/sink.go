package export

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Sink delivers a finished export file. It returns a human-readable location
// for the delivered file.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, filename string, data []byte) (string, error)
}

// Registry holds named sinks.
type Registry struct {
	sinks map[string]Sink
}

// NewRegistry creates an empty sink registry.
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// Register adds a sink. Panics on duplicate name.
func (r *Registry) Register(s Sink) {
	key := strings.ToLower(s.Name())
	if _, ok := r.sinks[key]; ok {
		panic("duplicate sink: " + key)
	}
	r.sinks[key] = s
}

// Get returns the sink registered under name, or nil.
func (r *Registry) Get(name string) Sink {
	return r.sinks[strings.ToLower(name)]
}

// Names returns the registered sink names in no particular order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sinks))
	for n := range r.sinks {
		names = append(names, n)
	}
	return names
}

// DirSink writes export files into a local directory, the CLI stand-in for a
// browser download folder.
type DirSink struct {
	Dir string
}

// Name returns the sink name.
func (s *DirSink) Name() string { return "dir" }

// Deliver writes data to Dir/filename, creating Dir if needed.
func (s *DirSink) Deliver(_ context.Context, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	path := filepath.Join(s.Dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", filename, err)
	}
	return path, nil
}

// WriterSink copies export bytes to a writer verbatim.
type WriterSink struct {
	W io.Writer
}

// Name returns the sink name.
func (s *WriterSink) Name() string { return "stdout" }

// Deliver writes data to W.
func (s *WriterSink) Deliver(_ context.Context, filename string, data []byte) (string, error) {
	if _, err := s.W.Write(data); err != nil {
		return "", fmt.Errorf("writing %s: %w", filename, err)
	}
	return "stdout", nil
}

// HTTPSink answers an HTTP request with the export as an attachment.
type HTTPSink struct {
	W http.ResponseWriter
}

// Name returns the sink name.
func (s *HTTPSink) Name() string { return "http" }

// Deliver sets download headers and writes data as the response body.
func (s *HTTPSink) Deliver(_ context.Context, filename string, data []byte) (string, error) {
	h := s.W.Header()
	h.Set("Content-Type", "text/csv; charset=utf-8")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	h.Set("Content-Length", strconv.Itoa(len(data)))
	s.W.WriteHeader(http.StatusOK)
	if _, err := s.W.Write(data); err != nil {
		return "", fmt.Errorf("sending %s: %w", filename, err)
	}
	return filename, nil
}
