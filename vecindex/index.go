// Package vecindex maintains one vector search index per node type, backed
// by sqlite-vec. Each index is a standalone SQLite database file and is
// rebuilt in full whenever the node set it covers changes.
package vecindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Entry is one indexed node: its graph ID, the text that was embedded, and
// the embedding vector.
type Entry struct {
	NodeID  string
	Content string
	Vector  []float32
}

// Hit is a search result with a cosine similarity score in [-1, 1].
type Hit struct {
	NodeID  string
	Content string
	Score   float32
}

// Index is a vector index over the nodes of a single type.
type Index struct {
	db   *sql.DB
	path string
	typ  string
	dim  int
}

// Open opens (or creates) the index database for one node type.
func Open(path, nodeType string, dim int) (*Index, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging index %s: %w", path, err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS entries (
			position INTEGER PRIMARY KEY,
			node_id TEXT NOT NULL,
			content TEXT NOT NULL
		);
		CREATE VIRTUAL TABLE IF NOT EXISTS vec_entries USING vec0(
			position INTEGER PRIMARY KEY,
			embedding FLOAT[%d] distance_metric=cosine
		);
	`, dim)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}

	// SQLite handles one writer at a time; keep the pool small.
	db.SetMaxOpenConns(2)

	return &Index{db: db, path: path, typ: nodeType, dim: dim}, nil
}

// Close closes the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Type returns the node type this index covers.
func (ix *Index) Type() string { return ix.typ }

// Rebuild replaces the index contents with the given entries, atomically.
// Positions follow the slice order, so the caller's node iteration order is
// preserved across rebuilds.
func (ix *Index) Rebuild(ctx context.Context, entries []Entry) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM vec_entries"); err != nil {
		return err
	}

	entryStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO entries (position, node_id, content) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer entryStmt.Close()

	vecStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO vec_entries (position, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	for i, e := range entries {
		if len(e.Vector) != ix.dim {
			return fmt.Errorf("entry %s has %d dimensions, index wants %d",
				e.NodeID, len(e.Vector), ix.dim)
		}
		if _, err := entryStmt.ExecContext(ctx, i, e.NodeID, e.Content); err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.NodeID, err)
		}
		if _, err := vecStmt.ExecContext(ctx, i, serializeFloat32(e.Vector)); err != nil {
			return fmt.Errorf("inserting vector for %s: %w", e.NodeID, err)
		}
	}

	return tx.Commit()
}

// Search returns the k nearest entries to the query vector, best first.
// The vec0 table uses cosine distance, so 1 - distance is cosine similarity.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query has %d dimensions, index wants %d", len(query), ix.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT e.node_id, e.content, v.distance
		FROM vec_entries v
		JOIN entries e ON e.position = v.position
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(query), k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var distance float64
		if err := rows.Scan(&h.NodeID, &h.Content, &distance); err != nil {
			return nil, err
		}
		h.Score = float32(1.0 - distance)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Count returns the number of indexed entries.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n)
	return n, err
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
