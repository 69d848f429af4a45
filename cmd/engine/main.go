package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"tenderwatch-engine/internal/config"
	"tenderwatch-engine/internal/crawl"
	"tenderwatch-engine/internal/events"
	"tenderwatch-engine/internal/httpapi"
	"tenderwatch-engine/internal/progress"
	"tenderwatch-engine/internal/scheduler"
	"tenderwatch-engine/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "engine:", err)
		os.Exit(1)
	}
}

func run() error {
	// Engine data dir: use env if provided (a desktop shell can pass one),
	// else local folder.
	dataDir := os.Getenv("TENDERWATCH_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// Single instance per data dir. The sqlite pool is a single writer and
	// two engines sharing one db file would fight over it.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("another engine instance is already running in %s", dataDir)
	}
	defer lock.Unlock()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		return fmt.Errorf("config bootstrap: %w", err)
	}
	cfg, err := config.Load(userCfgPath)
	if err != nil {
		return fmt.Errorf("config load (%s): %w", userCfgPath, err)
	}

	log, err := buildLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPath := filepath.Join(dataDir, "tenderwatch.db")
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := store.Migrate(db.Pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	svc := &store.Service{DB: db.Pool, Log: log}
	if err := svc.SyncWebsites(ctx, cfg.Websites); err != nil {
		return fmt.Errorf("sync websites: %w", err)
	}

	hub := events.NewHub()
	prog := progress.NewStore()
	go scheduler.Every(ctx, cfg.ProgressSweep(), "progress-sweep", log, func(context.Context) error {
		prog.Sweep(cfg.ProgressTTL())
		return nil
	})

	limiter := crawl.NewHostLimiter(cfg.Crawl.PerHostRPS, cfg.Crawl.PerHostBurst)
	fetcher := crawl.NewFetcher(crawl.FetcherConfig{
		UserAgent:      cfg.Crawl.UserAgent,
		SiteBudget:     cfg.SiteBudget(),
		RequestTimeout: cfg.RequestTimeout(),
		Limiter:        limiter,
	}, log)
	runner := crawl.NewRunner(crawl.RunnerConfig{
		Concurrency:    cfg.Crawl.Concurrency,
		InterSiteDelay: cfg.InterSiteDelay(),
	}, fetcher, svc, svc, prog, hub, log)

	cronMgr := scheduler.NewCronManager(db.Pool, runner, log)
	if err := cronMgr.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer cronMgr.Stop()

	router := httpapi.NewRouter(httpapi.Deps{
		DB:       db.Pool,
		Store:    svc,
		Runner:   runner,
		Progress: prog,
		Cron:     cronMgr,
		Hub:      hub,
		Log:      log,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Infof("[engine] listening on http://%s (db=%s)", addr, dbPath)

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infof("[engine] shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func buildLogger() (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if os.Getenv("TENDERWATCH_DEBUG") != "" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
