package vecindex

import (
	"context"
	"fmt"
	"path/filepath"
)

// Set holds one Index per node type, all stored under a common directory as
// index_<type>.db files.
type Set struct {
	dir     string
	dim     int
	indexes map[string]*Index
}

// OpenSet opens an index per node type under dir.
func OpenSet(dir string, dim int, nodeTypes []string) (*Set, error) {
	s := &Set{dir: dir, dim: dim, indexes: make(map[string]*Index, len(nodeTypes))}
	for _, t := range nodeTypes {
		ix, err := Open(filepath.Join(dir, "index_"+t+".db"), t, dim)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("opening %s index: %w", t, err)
		}
		s.indexes[t] = ix
	}
	return s, nil
}

// Index returns the index for a node type, or nil if the type is unknown.
func (s *Set) Index(nodeType string) *Index {
	return s.indexes[nodeType]
}

// Rebuild replaces the contents of one type's index.
func (s *Set) Rebuild(ctx context.Context, nodeType string, entries []Entry) error {
	ix := s.indexes[nodeType]
	if ix == nil {
		return fmt.Errorf("no index for node type %q", nodeType)
	}
	return ix.Rebuild(ctx, entries)
}

// Search queries one type's index.
func (s *Set) Search(ctx context.Context, nodeType string, query []float32, k int) ([]Hit, error) {
	ix := s.indexes[nodeType]
	if ix == nil {
		return nil, fmt.Errorf("no index for node type %q", nodeType)
	}
	return ix.Search(ctx, query, k)
}

// Close closes every index. The first error wins.
func (s *Set) Close() error {
	var firstErr error
	for _, ix := range s.indexes {
		if err := ix.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
