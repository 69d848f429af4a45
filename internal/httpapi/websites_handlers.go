package httpapi

import (
	"net/http"

	"tenderwatch-engine/internal/store"
)

type WebsitesHandler struct {
	Store *store.Service
}

func (h WebsitesHandler) List(w http.ResponseWriter, r *http.Request) {
	websites, err := h.Store.ListWebsites(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, websites)
}
