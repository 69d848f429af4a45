package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"

	"tenderwatch-engine/internal/store"
)

type HistoryHandler struct {
	DB *sql.DB
}

func (h HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := store.ListSearchHistory(r.Context(), h.DB, limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, records)
}
