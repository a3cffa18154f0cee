// Command destinyclockd serves the destinyclock query API for the subjects in
// a profiles directory and, with a database attached, runs and stores batch
// generations.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/destinyclock/destinyclock/internal/api"
	"github.com/destinyclock/destinyclock/internal/configuration"
	"github.com/destinyclock/destinyclock/internal/ingestion"
	"github.com/destinyclock/destinyclock/internal/logging"
	"github.com/destinyclock/destinyclock/internal/platform"
	"github.com/destinyclock/destinyclock/internal/publish"
	"github.com/destinyclock/destinyclock/internal/subject"
	"github.com/destinyclock/destinyclock/pkg/config"
	"github.com/destinyclock/destinyclock/pkg/engine"
	"github.com/destinyclock/destinyclock/pkg/oracle"
)

func main() {
	configPath := flag.String("config", envOrDefault("DESTINYCLOCK_CONFIG", ""), "Path to the daemon YAML config")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := configuration.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logCloser, err := setupLogging(cfg.Logger)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	log := logging.New("destinyclockd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profiles, err := config.LoadProfiles(cfg.Subjects.ProfilesDir)
	if err != nil {
		return err
	}
	registry, err := engine.NewRegistry(profiles, oracle.NewLunarOracle())
	if err != nil {
		return err
	}
	for _, s := range registry.List() {
		s.SetLogger(logging.New("engine"))
	}
	log.Info("subjects loaded", slog.Int("count", len(profiles)), slog.String("dir", cfg.Subjects.ProfilesDir))

	var (
		db     *sql.DB
		runs   api.RunReader
		runSvc api.RunService
	)
	if cfg.Database.URL != "" {
		db, err = platform.OpenDB(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if cfg.Database.AutoMigrate {
			if err := platform.AutoMigrate(db); err != nil {
				return err
			}
		}

		storage, err := newStorage(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		publisher := newPublisher(cfg.Kafka)
		defer publisher.Close()

		store := subject.NewService(db)
		runs = store
		runSvc = ingestion.NewService(store, registry, storage, publisher, ingestion.Options{
			Workers:   cfg.Subjects.Workers,
			ChunkSize: cfg.Subjects.ChunkSize,
		}, logging.New("ingestion"))
	} else {
		log.Warn("no database configured, run endpoints disabled")
	}

	handler := api.NewHandler(registry, runs, runSvc, api.NewSeriesCache(cfg.Cache.Size), nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler(db))
	handler.RegisterRoutes(mux)

	var h http.Handler = api.APIKeyAuth(cfg.Server.APIKey)(mux)
	if cfg.Server.CORS {
		h = api.CORS(h)
	}
	h = handlers.LoggingHandler(os.Stdout, h)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting destinyclockd", slog.String("addr", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func setupLogging(cfg configuration.LoggerConfig) (io.Closer, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if cfg.File == "" {
		logging.Init(level, cfg.Format)
		return nopCloser{}, nil
	}
	w := logging.RotatingFile(logging.FileConfig{Path: cfg.File, Compress: true})
	logging.Init(level, cfg.Format, w)
	return w, nil
}

func newStorage(ctx context.Context, cfg configuration.StorageConfig) (ingestion.StorageClient, error) {
	switch cfg.Backend {
	case configuration.StorageS3:
		return ingestion.NewS3Storage(ctx, ingestion.S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
		})
	case configuration.StorageGCS:
		return ingestion.NewGCSStorage(ctx, cfg.Bucket)
	default:
		return ingestion.NewLocalStorage(cfg.Path), nil
	}
}

func newPublisher(cfg configuration.KafkaConfig) publish.Publisher {
	if len(cfg.Brokers) == 0 {
		return publish.Nop{}
	}
	return publish.NewKafkaPublisher(cfg.Brokers, cfg.Topic, logging.New("publish"))
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, `{"status":"database unreachable"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
