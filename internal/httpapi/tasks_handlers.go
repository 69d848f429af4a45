package httpapi

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tenderwatch-engine/internal/domain"
	"tenderwatch-engine/internal/scheduler"
	"tenderwatch-engine/internal/store"
)

// TasksHandler manages the recurring crawl definitions the cron manager
// dispatches.
type TasksHandler struct {
	DB   *sql.DB
	Cron *scheduler.CronManager
}

type createTaskRequest struct {
	Name        string `json:"name"`
	Query       string `json:"query"`
	Category    string `json:"category"`
	IntervalSec int    `json:"interval_seconds"`
	StartNow    bool   `json:"start_now"`
}

func (h TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Name == "" || req.Query == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "name and query are required")
		return
	}

	task := domain.CrawlTask{
		Name:        req.Name,
		Query:       req.Query,
		Category:    req.Category,
		IntervalSec: req.IntervalSec,
	}
	if req.StartNow {
		task.Status = "active"
	}

	id, err := store.CreateCrawlTask(r.Context(), h.DB, task)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if req.StartNow {
		_ = h.Cron.Reload(r.Context())
	}
	writeJSON(w, map[string]any{"ok": true, "id": id})
}

func (h TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := store.ListCrawlTasks(r.Context(), h.DB)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, tasks)
}

func (h TasksHandler) Runs(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid id")
		return
	}
	runs, err := store.ListCrawlRuns(r.Context(), h.DB, id, 50)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, runs)
}

func (h TasksHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, "active")
}

func (h TasksHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, "stopped")
}

func (h TasksHandler) setStatus(w http.ResponseWriter, r *http.Request, status string) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid id")
		return
	}
	if err := store.SetCrawlTaskStatus(r.Context(), h.DB, id, status); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if err := h.Cron.Reload(r.Context()); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "scheduler_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"ok": true, "id": id, "status": status})
}

func (h TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid id")
		return
	}
	if err := store.DeleteCrawlTask(r.Context(), h.DB, id); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	_ = h.Cron.Reload(r.Context())
	writeJSON(w, map[string]any{"ok": true, "id": id})
}
