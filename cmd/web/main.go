package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/championship-draw/internal/config"
	"github.com/AdamBeresnev/championship-draw/internal/db"
	"github.com/AdamBeresnev/championship-draw/internal/draw"
	"github.com/AdamBeresnev/championship-draw/internal/eventbus"
	"github.com/AdamBeresnev/championship-draw/internal/live"
	"github.com/AdamBeresnev/championship-draw/internal/logo"
	"github.com/AdamBeresnev/championship-draw/internal/metrics"
	"github.com/AdamBeresnev/championship-draw/internal/middleware"
	"github.com/AdamBeresnev/championship-draw/internal/service"
	"github.com/AdamBeresnev/championship-draw/internal/store"
	"github.com/AdamBeresnev/championship-draw/internal/viewsync"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB); err != nil {
		return err
	}

	// Every process is its own context for change notifications
	contextID := uuid.NewString()
	repo := store.NewStateStore(database, contextID)

	bus := eventbus.New(logger)
	defer bus.Close()

	recorder := metrics.New()
	hub := live.NewHub(cfg.CORSOrigins)

	tournaments := service.NewTournamentService(repo, bus)
	draws := service.NewDrawService(repo, bus, recorder)
	operators := service.NewOperatorService(store.NewOperatorStore(database), cfg.AdminEmails, cfg.AllowGuestAdmin)

	display := viewsync.NewObserver("display", repo, bus, func(context.Context, draw.Snapshot) {
		recorder.Notification("refresh")
		hub.TournamentUpdated()
	})

	session := service.NewDrawSession(draws, cfg.RevealHold, cfg.RevealExit, func(ctx context.Context, a service.Assignment) {
		hub.ClubRevealed(display.Current().Tournament.Format, a.Position)
	})
	defer session.Close()

	watcher := store.NewWatcher(database, contextID, cfg.PollInterval, func(ctx context.Context, key string) {
		recorder.Notification("storage")
		bus.StorageChanged(ctx, key)
	})

	converter, err := newLogoConverter(ctx, cfg)
	if err != nil {
		return err
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Store = sqlite3store.New(database.DB)

	providers := middleware.InitAuth(cfg.OAuth)

	router := newRouter(&app{
		cfg:            cfg,
		sessionManager: sessionManager,
		operatorStore:  store.NewOperatorStore(database),
		operators:      operators,
		providers:      providers,
		tournaments:    tournaments,
		draws:          draws,
		session:        session,
		display:        display,
		hub:            hub,
		logos:          converter,
		metrics:        recorder,
	})

	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return display.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.ServerAddr, "context_id", contextID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("server shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogoConverter(ctx context.Context, cfg *config.Config) (logo.Converter, error) {
	if !cfg.ObjectStore.Enabled() {
		return logo.DataURIConverter{MaxBytes: cfg.LogoMaxBytes}, nil
	}

	uploader, err := logo.NewR2Uploader(ctx, cfg.ObjectStore)
	if err != nil {
		return nil, err
	}
	slog.Info("storing logos in object storage", "bucket", cfg.ObjectStore.BucketName)
	return logo.ObjectStoreConverter{Uploader: uploader, Prefix: "logos/", MaxBytes: cfg.LogoMaxBytes}, nil
}
