package store

// schemaSQL is the DDL for all tables: the uploaded-document registry, the
// per-document analysis results (segments, citations), and the query audit
// log for the QA loop.
const schemaSQL = `
-- Uploaded legal documents with hash-based change detection
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    filename TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    doc_type TEXT DEFAULT '',
    page_count INTEGER DEFAULT 0,
    status TEXT DEFAULT 'pending',
    summary TEXT DEFAULT '',
    metadata JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Labeled document segments produced by the analysis pipeline
CREATE TABLE IF NOT EXISTS segments (
    id INTEGER PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    label TEXT NOT NULL,
    content TEXT NOT NULL,
    position INTEGER NOT NULL,
    summary TEXT DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_segments_document ON segments(document_id);

-- Extracted citations, categorized
CREATE TABLE IF NOT EXISTS citations (
    id INTEGER PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    text TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_citations_document ON citations(document_id);

-- Audit log for the question-answering loop
CREATE TABLE IF NOT EXISTS query_log (
    id INTEGER PRIMARY KEY,
    query TEXT NOT NULL,
    answer TEXT,
    method_used TEXT,
    success BOOLEAN DEFAULT 0,
    match_score REAL DEFAULT 0,
    scenario_id TEXT DEFAULT '',
    nodes_created INTEGER DEFAULT 0,
    processing_ms INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
