package ingest

import (
	"context"
	"path/filepath"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
)

// FileSource loads a comparison file on demand.
type FileSource struct {
	Path   string
	Reader *Reader
}

// NewFileSource returns a source reading path with r.
func NewFileSource(path string, r *Reader) FileSource {
	return FileSource{Path: path, Reader: r}
}

// Name returns the base name of the file.
func (s FileSource) Name() string { return filepath.Base(s.Path) }

// Records reads and parses the file.
func (s FileSource) Records(ctx context.Context) ([]model.EventRecord, error) {
	r := s.Reader
	if r == nil {
		r = NewReader()
	}
	return r.ReadFile(ctx, s.Path)
}

// FileSources wraps each path in a FileSource sharing r.
func FileSources(paths []string, r *Reader) []model.Source {
	out := make([]model.Source, 0, len(paths))
	for _, p := range paths {
		out = append(out, NewFileSource(p, r))
	}
	return out
}
