package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/legalgraph/lawreader"
	"github.com/legalgraph/lawreader/docpipe"
)

// maxUploadBytes caps PDF uploads.
const maxUploadBytes = 10 << 20

type handler struct {
	engine   lawreader.Reader
	analyzer *docpipe.Analyzer
}

func newHandler(e lawreader.Reader, a *docpipe.Analyzer) *handler {
	return &handler{engine: e, analyzer: a}
}

// POST /query
func (h *handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Question string `json:"question"`
		ForceLLM bool   `json:"force_llm,omitempty"`
		Debug    bool   `json:"debug,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	var opts []lawreader.QueryOption
	if req.ForceLLM {
		opts = append(opts, lawreader.WithForceLLM())
	}

	res, err := h.engine.ProcessQuery(ctx, req.Question, opts...)
	if err != nil {
		if errors.Is(err, lawreader.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "question is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "query failed")
		slog.Error("query error", "question", req.Question, "error", err)
		return
	}

	if !req.Debug {
		res.DebugInfo = nil
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /analyze
// Accepts a multipart PDF upload, or JSON with a server-local file path.
func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(maxUploadBytes); err == nil {
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()
			h.analyzeUpload(ctx, w, file, header.Filename)
			return
		}
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file or JSON with 'path'")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	absPath, err := filepath.Abs(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusBadRequest, "path must be an existing file")
		return
	}

	h.runAnalysis(ctx, w, absPath)
}

func (h *handler) analyzeUpload(ctx context.Context, w http.ResponseWriter, file io.Reader, filename string) {
	// Sanitise filename to prevent path traversal.
	safeName := filepath.Base(filename)

	tmpPath := filepath.Join(os.TempDir(), safeName)
	dst, err := os.Create(tmpPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process file")
		slog.Error("creating temp file", "error", err)
		return
	}
	if _, err := io.Copy(dst, io.LimitReader(file, maxUploadBytes)); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, "failed to save file")
		slog.Error("saving uploaded file", "error", err)
		return
	}
	dst.Close()
	defer os.Remove(tmpPath)

	h.runAnalysis(ctx, w, tmpPath)
}

func (h *handler) runAnalysis(ctx context.Context, w http.ResponseWriter, path string) {
	analysis, err := h.analyzer.Analyze(ctx, path)
	if err != nil {
		switch {
		case errors.Is(err, docpipe.ErrExtraction):
			writeError(w, http.StatusBadRequest, "could not extract text from PDF")
		default:
			writeError(w, http.StatusInternalServerError, "analysis failed")
		}
		slog.Error("analyze error", "path", path, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// GET /documents
func (h *handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.engine.Store().ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		slog.Error("list documents error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

// GET /documents/{id}
func (h *handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	st := h.engine.Store()
	doc, err := st.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	segments, err := st.GetSegments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load segments")
		slog.Error("get segments error", "document_id", id, "error", err)
		return
	}
	citations, err := st.GetCitations(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load citations")
		slog.Error("get citations error", "document_id", id, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document":  doc,
		"segments":  segments,
		"citations": citations,
	})
}

// DELETE /documents/{id}
func (h *handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	if err := h.engine.Store().DeleteDocument(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		slog.Error("delete error", "document_id", id, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /stats
func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	dbStats, err := h.engine.Store().Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read stats")
		slog.Error("stats error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"graph":    h.engine.GraphStats(),
		"database": dbStats,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
