package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter wires the collaborator-facing JSON surface. The crawl pipeline
// itself never depends on this layer.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Recover(d.Log))
	r.Use(AccessLog(d.Log))
	r.Use(Cors)

	hh := HealthHandler{DB: d.DB}
	r.Get("/health", hh.Health)

	ch := CrawlHandler{DB: d.DB, Runner: d.Runner, Progress: d.Progress, Log: d.Log}
	r.Post("/api/search", ch.StartSearch)
	r.Get("/api/crawl/tasks", ch.ListTasks)
	r.Get("/api/crawl/progress/{taskID}", ch.GetProgress)
	r.Delete("/api/crawl/{taskID}", ch.CancelTask)

	th := TendersHandler{DB: d.DB, Hub: d.Hub}
	r.Get("/api/tenders", th.Search)
	r.Get("/api/tenders/{id}", th.Detail)
	r.Delete("/api/tenders/{id}", th.Delete)

	wh := WebsitesHandler{Store: d.Store}
	r.Get("/api/websites", wh.List)

	sh := TasksHandler{DB: d.DB, Cron: d.Cron}
	r.Post("/api/tasks", sh.Create)
	r.Get("/api/tasks", sh.List)
	r.Get("/api/tasks/{id}/runs", sh.Runs)
	r.Post("/api/tasks/{id}/start", sh.Start)
	r.Post("/api/tasks/{id}/stop", sh.Stop)
	r.Delete("/api/tasks/{id}", sh.Delete)

	hi := HistoryHandler{DB: d.DB}
	r.Get("/api/history", hi.List)

	eh := EventsHandler{Hub: d.Hub}
	r.Get("/events", eh.ServeSSE)

	dh := DBHandler{DB: d.DB}
	r.Post("/db/checkpoint", dh.Checkpoint)

	return r
}
