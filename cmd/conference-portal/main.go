package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yair/conference-portal/pkg/catalog"
	"github.com/yair/conference-portal/pkg/collectors"
	"github.com/yair/conference-portal/pkg/config"
	"github.com/yair/conference-portal/pkg/domain"
	"github.com/yair/conference-portal/pkg/gazetteer"
	"github.com/yair/conference-portal/pkg/geocode"
	"github.com/yair/conference-portal/pkg/ingest"
	"github.com/yair/conference-portal/pkg/integrations"
	"github.com/yair/conference-portal/pkg/interests"
	"github.com/yair/conference-portal/pkg/interfaces"
	"github.com/yair/conference-portal/pkg/jobs"
	"github.com/yair/conference-portal/pkg/logging"
)

func main() {
	_ = godotenv.Load(".env")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("failed to load config", err)
	}
	logging.SetLevel(logging.ParseLevel(cfg.Log.Level))

	if err := cfg.Validate(); err != nil {
		fatal("invalid config", err)
	}

	logging.Info("starting conference portal", "config", configPath)

	// Geocoding tiers
	var geocoder geocode.Geocoder
	if cfg.Geocoding.Disabled {
		logging.Info("external geocoding disabled, gazetteer only")
	} else {
		nominatim, err := integrations.NewNominatimClient(integrations.NominatimConfig{
			BaseURL:   cfg.Geocoding.BaseURL,
			UserAgent: cfg.Geocoding.UserAgent,
			Timeout:   cfg.Geocoding.GeocodeTimeout(),
			Delay:     cfg.Geocoding.Delay(),
		})
		if err != nil {
			fatal("failed to create geocoding client", err)
		}
		geocoder = nominatim
	}
	places := gazetteer.Default()
	resolver := geocode.NewResolver(places, geocoder, nil)
	logging.Info("gazetteer loaded", "places", places.Len())

	// Catalog
	store := catalog.NewStore(cfg.Storage.EventsFile, catalog.WithSeedFile(cfg.Storage.SeedFile))
	if err := store.Load(); err != nil {
		fatal("failed to load events", err)
	}

	// Interest blobs
	blobs, db, err := openBlobStore(cfg.Blob)
	if err != nil {
		fatal("failed to open blob store", err)
	}
	if db != nil {
		defer db.Close()
	}

	ingestService := ingest.NewService(ingest.NewNormalizer(resolver), store)
	interestService := interests.NewService(store, blobs, cfg.Interests.EmailDomain, cfg.Interests.BlobPrefix)

	regeocodeJob, err := jobs.NewRegeocodeJob(store, resolver, cfg.Jobs.RegeocodeCron)
	if err != nil {
		fatal("invalid job schedule", err)
	}
	if err := regeocodeJob.Start(); err != nil {
		fatal("failed to start jobs", err)
	}

	limiter := interfaces.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	stopCleanup := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Cleanup(30 * time.Minute)
			case <-stopCleanup:
				return
			}
		}
	}()

	handler := interfaces.NewRouter(interfaces.RouterConfig{
		Events:         interfaces.NewEventHandler(store),
		Interests:      interfaces.NewInterestHandler(interestService, limiter),
		Admin:          interfaces.NewAdminHandler(store, ingestService, resolver, interestService, cfg.Admin.Passphrase),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StaticDir:      cfg.Server.StaticDir,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logging.Info("server listening", "port", cfg.Server.Port, "events", store.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("server forced to shutdown", err)
	}
	regeocodeJob.Stop()
	close(stopCleanup)

	logging.Info("server stopped")
}

// openBlobStore returns the configured interest store. The *sql.DB is
// non-nil only for the sqlite backend and must be closed by the caller.
func openBlobStore(cfg config.BlobConfig) (domain.BlobStore, *sql.DB, error) {
	switch cfg.Backend {
	case config.BlobBackendHTTP:
		client, err := integrations.NewBlobClient(integrations.BlobConfig{BaseURL: cfg.BaseURL, Token: cfg.Token})
		if err != nil {
			return nil, nil, err
		}
		logging.Info("using remote blob store", "base_url", cfg.BaseURL)
		return client, nil, nil

	default:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, err
		}
		db, err := collectors.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		repo, err := collectors.NewBlobRepository(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		logging.Info("using sqlite blob store", "path", cfg.SQLitePath)
		return repo, db, nil
	}
}

func fatal(msg string, err error) {
	logging.Error(msg, err)
	os.Exit(1)
}
