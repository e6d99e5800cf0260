// Package store persists document analyses and the query audit log in
// SQLite. Graph and vector-index persistence live elsewhere; this database
// only covers the PDF analysis pipeline and operational logging.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Document represents a row in the documents table.
type Document struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	ContentHash string `json:"content_hash"`
	DocType     string `json:"doc_type"`
	PageCount   int    `json:"page_count"`
	Status      string `json:"status"`
	Summary     string `json:"summary,omitempty"`
	Metadata    string `json:"metadata,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Segment is one labeled piece of an analyzed document.
type Segment struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	Label      string `json:"label"`
	Content    string `json:"content"`
	Position   int    `json:"position"`
	Summary    string `json:"summary,omitempty"`
}

// Citation is one extracted reference, categorized.
type Citation struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	Category   string `json:"category"`
	Text       string `json:"text"`
}

// QueryRecord is one entry in the query audit log.
type QueryRecord struct {
	ID           int64   `json:"id,omitempty"`
	Query        string  `json:"query"`
	Answer       string  `json:"answer"`
	MethodUsed   string  `json:"method_used"`
	Success      bool    `json:"success"`
	MatchScore   float64 `json:"match_score"`
	ScenarioID   string  `json:"scenario_id"`
	NodesCreated int     `json:"nodes_created"`
	ProcessingMs int64   `json:"processing_ms"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

// Store wraps the SQLite database for all lawreader persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Document operations ---

// UpsertDocument inserts or updates a document record. Returns the document ID.
// RETURNING yields this row's id on both branches; LastInsertId would report
// the connection's last inserted rowid when the UPDATE branch fires.
func (s *Store) UpsertDocument(ctx context.Context, doc Document) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (path, filename, content_hash, doc_type, page_count, status, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename = excluded.filename,
			content_hash = excluded.content_hash,
			doc_type = excluded.doc_type,
			page_count = excluded.page_count,
			status = excluded.status,
			metadata = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`, doc.Path, doc.Filename, doc.ContentHash, doc.DocType, doc.PageCount, doc.Status, doc.Metadata).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	return s.getDocument(ctx, "id = ?", id)
}

// GetDocumentByPath retrieves a document by its file path.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	return s.getDocument(ctx, "path = ?", path)
}

func (s *Store) getDocument(ctx context.Context, where string, arg interface{}) (*Document, error) {
	doc := &Document{}
	var metadata, summary sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, path, filename, content_hash, doc_type, page_count, status, summary, metadata, created_at, updated_at
		FROM documents WHERE `+where, arg,
	).Scan(&doc.ID, &doc.Path, &doc.Filename, &doc.ContentHash, &doc.DocType,
		&doc.PageCount, &doc.Status, &summary, &metadata, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.Summary = summary.String
	doc.Metadata = metadata.String
	return doc, nil
}

// ListDocuments returns all documents ordered by creation time, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, filename, content_hash, doc_type, page_count, status, summary, metadata, created_at, updated_at
		FROM documents ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var metadata, summary sql.NullString
		if err := rows.Scan(&d.ID, &d.Path, &d.Filename, &d.ContentHash, &d.DocType,
			&d.PageCount, &d.Status, &summary, &metadata, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Summary = summary.String
		d.Metadata = metadata.String
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateDocumentStatus updates just the status field.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id)
	return err
}

// DeleteDocument removes a document; segments and citations cascade.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	return err
}

// --- Analysis results ---

// SaveAnalysis atomically replaces a document's analysis: its type, segments,
// citations, and summary. Runs in one transaction so readers never observe a
// half-written analysis.
func (s *Store) SaveAnalysis(ctx context.Context, docID int64, docType, summary string,
	segments []Segment, citations []Citation) error {

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM segments WHERE document_id = ?", docID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM citations WHERE document_id = ?", docID); err != nil {
			return err
		}

		segStmt, err := tx.PrepareContext(ctx,
			"INSERT INTO segments (document_id, label, content, position, summary) VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer segStmt.Close()
		for i, seg := range segments {
			if _, err := segStmt.ExecContext(ctx, docID, seg.Label, seg.Content, i, seg.Summary); err != nil {
				return fmt.Errorf("inserting segment %d: %w", i, err)
			}
		}

		citStmt, err := tx.PrepareContext(ctx,
			"INSERT INTO citations (document_id, category, text) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer citStmt.Close()
		for i, c := range citations {
			if _, err := citStmt.ExecContext(ctx, docID, c.Category, c.Text); err != nil {
				return fmt.Errorf("inserting citation %d: %w", i, err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE documents
			SET doc_type = ?, summary = ?, status = 'analyzed', updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`, docType, summary, docID)
		return err
	})
}

// GetSegments returns a document's segments in position order.
func (s *Store) GetSegments(ctx context.Context, docID int64) ([]Segment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, label, content, position, summary
		FROM segments WHERE document_id = ? ORDER BY position
	`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		var seg Segment
		var summary sql.NullString
		if err := rows.Scan(&seg.ID, &seg.DocumentID, &seg.Label, &seg.Content,
			&seg.Position, &summary); err != nil {
			return nil, err
		}
		seg.Summary = summary.String
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// GetCitations returns a document's citations.
func (s *Store) GetCitations(ctx context.Context, docID int64) ([]Citation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, category, text
		FROM citations WHERE document_id = ? ORDER BY id
	`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var citations []Citation
	for rows.Next() {
		var c Citation
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Category, &c.Text); err != nil {
			return nil, err
		}
		citations = append(citations, c)
	}
	return citations, rows.Err()
}

// --- Query log ---

// LogQuery writes an entry to the query audit log.
func (s *Store) LogQuery(ctx context.Context, q QueryRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_log (query, answer, method_used, success, match_score, scenario_id, nodes_created, processing_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, q.Query, q.Answer, q.MethodUsed, q.Success, q.MatchScore, q.ScenarioID, q.NodesCreated, q.ProcessingMs)
	return err
}

// RecentQueries returns the newest n query log entries.
func (s *Store) RecentQueries(ctx context.Context, n int) ([]QueryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, answer, method_used, success, match_score, scenario_id, nodes_created, processing_ms, created_at
		FROM query_log ORDER BY id DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []QueryRecord
	for rows.Next() {
		var r QueryRecord
		var answer, method, scenario sql.NullString
		if err := rows.Scan(&r.ID, &r.Query, &answer, &method, &r.Success,
			&r.MatchScore, &scenario, &r.NodesCreated, &r.ProcessingMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Answer = answer.String
		r.MethodUsed = method.String
		r.ScenarioID = scenario.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// DBStats holds counts of key database objects.
type DBStats struct {
	Documents int `json:"documents"`
	Segments  int `json:"segments"`
	Citations int `json:"citations"`
	Queries   int `json:"queries"`
}

// Stats returns counts of documents, segments, citations, and logged queries.
func (s *Store) Stats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM segments", &stats.Segments},
		{"SELECT COUNT(*) FROM citations", &stats.Citations},
		{"SELECT COUNT(*) FROM query_log", &stats.Queries},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
