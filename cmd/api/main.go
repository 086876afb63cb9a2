package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/denisok6893-rgb/place-matching/internal/cache"
	"github.com/denisok6893-rgb/place-matching/internal/config"
	"github.com/denisok6893-rgb/place-matching/internal/domain"
	httpapi "github.com/denisok6893-rgb/place-matching/internal/http"
	"github.com/denisok6893-rgb/place-matching/internal/logging"
	"github.com/denisok6893-rgb/place-matching/internal/matching"
	"github.com/denisok6893-rgb/place-matching/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logging.Logger()
		log.Fatal().Err(err).Msg("load config")
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logging.Logger()

	repo, closeRepo, err := openRepository(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open places")
	}
	defer closeRepo()

	w, err := matching.LoadWeightsFromFile(cfg.WeightsPath)
	if err != nil {
		log.Info().Err(err).Msg("use default weights")
		w = matching.DefaultWeights()
	}

	opts := []matching.Option{matching.WithLogger(log)}
	if cfg.Cache.ScoreMemoSize > 0 {
		opts = append(opts, matching.WithMemo(cache.NewLRU[domain.MatchScoreResult](cfg.Cache.ScoreMemoSize, 0)))
	}
	engine := matching.NewEngine(w, opts...)

	srv := httpapi.NewServer(engine, repo, log)
	srv.CacheTTL = cfg.Cache.PageTTL
	srv.Cache = openPageCache(cfg, log)

	httpSrv := &http.Server{
		Addr:         cfg.Address,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("address", cfg.Address).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

// openRepository prefers SQLite when configured and seeds an empty database
// from the JSON file.
func openRepository(cfg *config.Config, log zerolog.Logger) (httpapi.PlaceRepository, func(), error) {
	if cfg.SQLitePath == "" {
		places, err := storage.LoadPlacesFromFile(cfg.PlacesPath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Int("count", len(places)).Str("path", cfg.PlacesPath).Msg("places loaded")
		return httpapi.NewMemoryPlacesRepo(places), func() {}, nil
	}

	ctx := context.Background()
	store, err := storage.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	n, err := store.CountPlaces(ctx)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	if n == 0 && cfg.PlacesPath != "" {
		places, err := storage.LoadPlacesFromFile(cfg.PlacesPath)
		if err != nil {
			log.Warn().Err(err).Msg("seed skipped")
		} else if err := store.UpsertMany(ctx, places); err != nil {
			_ = store.Close()
			return nil, nil, err
		} else {
			log.Info().Int("count", len(places)).Msg("database seeded")
		}
	}

	return &httpapi.SQLitePlacesRepo{Store: store}, func() { _ = store.Close() }, nil
}

func openPageCache(cfg *config.Config, log zerolog.Logger) httpapi.ResponseCache {
	if cfg.Cache.ValkeyAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		client, err := cache.NewValkeyClient(ctx, cfg.Cache.ValkeyAddr)
		if err == nil {
			log.Info().Str("addr", cfg.Cache.ValkeyAddr).Msg("valkey page cache enabled")
			return cache.NewValkeyStore(client, "places")
		}
		log.Error().Err(err).Msg("valkey unavailable, falling back to memory cache")
	}
	if cfg.Cache.PageSize == 0 {
		return nil
	}
	return cache.NewMemoryStore(cfg.Cache.PageSize, cfg.Cache.PageTTL)
}
