package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenderwatch-engine/internal/crawl"
	"tenderwatch-engine/internal/progress"
	"tenderwatch-engine/internal/store"
)

type CrawlHandler struct {
	DB       *sql.DB
	Runner   *crawl.Runner
	Progress *progress.Store
	Log      *zap.SugaredLogger
}

type startSearchRequest struct {
	Query    string `json:"query"`
	Category string `json:"category"`
}

// StartSearch kicks off a background crawl batch and returns the task
// identifier the caller polls with.
func (h CrawlHandler) StartSearch(w http.ResponseWriter, r *http.Request) {
	var req startSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "query is required")
		return
	}

	historyID, err := store.SaveSearchHistory(r.Context(), h.DB, req.Query, req.Category)
	if err != nil {
		h.Log.Warnf("[api] save search history err=%v", err)
	}

	taskID := uuid.NewString()
	h.Runner.StartBatch(taskID, req.Query, req.Category, func(found int) {
		if historyID == 0 {
			return
		}
		if err := store.UpdateSearchHistoryCount(context.Background(), h.DB, historyID, found); err != nil {
			h.Log.Warnf("[api] update search history count err=%v", err)
		}
	})

	writeJSON(w, map[string]any{
		"task_id":    taskID,
		"history_id": historyID,
	})
}

// GetProgress returns the live progress record, or a not-found envelope for
// unknown task identifiers. Never a fault.
func (h CrawlHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	rec, ok := h.Progress.Get(taskID)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "not_found",
			"task_id": taskID,
		})
		return
	}
	writeJSON(w, rec)
}

func (h CrawlHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Progress.List())
}

// CancelTask cancels an in-flight batch (observed at the next per-URL
// attempt) and drops its progress record.
func (h CrawlHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	cancelled := h.Runner.Cancel(taskID)
	_, known := h.Progress.Get(taskID)
	h.Progress.Remove(taskID)

	if !cancelled && !known {
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown task")
		return
	}
	writeJSON(w, map[string]any{"ok": true, "cancelled": cancelled})
}
