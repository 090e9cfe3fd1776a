package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"venuemap/internal/api"
	"venuemap/pkg/catalog"
	"venuemap/pkg/config"
	"venuemap/pkg/db"
	"venuemap/pkg/db/maintenance"
	"venuemap/pkg/logging"
	"venuemap/pkg/probe"
	"venuemap/pkg/store"
	"venuemap/pkg/tracker"
	"venuemap/pkg/version"
)

const defaultConfigPath = "configs/venuemap.yaml"

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
)

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	// A missing .env is fine; VENUEMAP_* overrides may come from the environment.
	_ = godotenv.Load()

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("VenueMap Started", "version", version.Version)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	report := maintenance.Run(ctx, st, dbConn, appCfg.Venues.Path, time.Duration(appCfg.DB.EventRetention))
	if report.CatalogChanged {
		slog.Info("Venue catalog changed since last start", "path", appCfg.Venues.Path)
	}

	cat, err := catalog.Load(appCfg.Venues.Path, appCfg.App.SolutionName, appCfg.Venues.AnchorOrder)
	if err != nil {
		return fmt.Errorf("failed to load venue catalog: %w", err)
	}

	tr := tracker.New(st)

	// Startup Probes
	results := probe.Run(ctx, []probe.Probe{
		probe.Database(dbConn),
		probe.Catalog(cat),
		probe.StaticDir(appCfg.Server.StaticDir),
	})
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	shutdownFunc := func() {
		quit <- syscall.SIGTERM
	}

	mapView := api.NewMapViewHandler(appCfg, cat, tr)
	srv := api.NewServer(appCfg.Server,
		api.NewConfigHandler(appCfg, cat.Solution()),
		api.NewVenueHandler(cat),
		api.NewStatsHandler(tr, mapView, cat),
		api.NewEventsHandler(st),
		mapView,
		shutdownFunc,
	)

	srv.Handler = loggingMiddleware(srv.Handler)
	// Map views are hijacked connections that Shutdown does not wait for; end them with ctx.
	srv.BaseContext = func(net.Listener) context.Context { return ctx }
	srv.RegisterOnShutdown(cancel)
	return runServerLifecycle(ctx, srv, quit)
}

func initDB(appCfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
