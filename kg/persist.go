package kg

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrGraphLoad is returned when the graph file is missing or corrupt.
var ErrGraphLoad = errors.New("kg: graph load failed")

// graphFile is the on-disk JSON representation: a flat node list followed by
// a flat edge list. Node order in the file is the graph's iteration order.
type graphFile struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`
}

// Load reads a graph from its JSON file. A missing or unparseable file
// yields an error wrapping ErrGraphLoad; callers that permit an empty-graph
// fallback must check for it explicitly.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrGraphLoad, path, err)
	}

	var gf graphFile
	if err := json.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrGraphLoad, path, err)
	}

	g := New()
	for _, n := range gf.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("%w: node with empty id in %s", ErrGraphLoad, path)
		}
		g.insert(n)
	}
	for _, e := range gf.Edges {
		g.AddEdgeIfMissing(e.A, e.B, e.Type)
	}
	return g, nil
}

// Save writes the graph to path as a full overwrite, serialized against
// other writers by an exclusive sidecar lock file (<path>.lock). The write
// goes through a temp file and rename so readers never see a torn file.
func Save(g *Graph, path string) error {
	lock, err := acquireLock(path+".lock", 10*time.Second)
	if err != nil {
		return fmt.Errorf("locking graph file: %w", err)
	}
	defer lock.release()

	gf := graphFile{Nodes: g.Nodes(), Edges: g.edges}
	data, err := json.MarshalIndent(gf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing graph temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing graph file: %w", err)
	}
	return nil
}

// fileLock is an advisory lock held as an exclusively-created sidecar file.
type fileLock struct {
	path string
}

// acquireLock creates the lock file with O_EXCL, retrying until timeout.
// Lock files older than the timeout are treated as stale leftovers from a
// crashed writer and removed.
func acquireLock(path string, timeout time.Duration) (*fileLock, error) {
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return &fileLock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
		if info, serr := os.Stat(path); serr == nil && time.Since(info.ModTime()) > timeout {
			os.Remove(path)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for lock %s", path)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func (l *fileLock) release() {
	os.Remove(l.path)
}
