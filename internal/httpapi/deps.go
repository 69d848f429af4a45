package httpapi

import (
	"database/sql"

	"go.uber.org/zap"

	"tenderwatch-engine/internal/crawl"
	"tenderwatch-engine/internal/events"
	"tenderwatch-engine/internal/progress"
	"tenderwatch-engine/internal/scheduler"
	"tenderwatch-engine/internal/store"
)

type Deps struct {
	DB       *sql.DB
	Store    *store.Service
	Runner   *crawl.Runner
	Progress *progress.Store
	Cron     *scheduler.CronManager
	Hub      *events.Hub
	Log      *zap.SugaredLogger
}
