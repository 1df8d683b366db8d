package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"saun/internal/bootstrap"
	"saun/internal/events"
	"saun/internal/generation"
	"saun/internal/http/handlers"
	"saun/internal/http/httpapi"
	"saun/internal/infra"
	"saun/internal/infra/geoip"
	"saun/internal/middleware"
	"saun/internal/rating"
	"saun/internal/search"
	"saun/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open store")
	}
	defer store.Close()

	blobs, err := bootstrap.OpenBlobs(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open blob storage")
	}

	model, err := bootstrap.NewGenAI(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure gemini client")
	}

	jobs, err := bootstrap.OpenQueue(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open job queue")
	}
	defer jobs.Close()

	hub := events.NewHub(logger)
	var publisher events.Publisher = hub
	if jobs.Redis != nil {
		go func() {
			if err := events.Relay(ctx, jobs.Redis, cfg.EventsChannel, hub); err != nil {
				logger.Error().Err(err).Msg("event relay stopped")
			}
		}()
		publisher = events.NewRedisPublisher(jobs.Redis, cfg.EventsChannel, logger)
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()
	var country middleware.CountryLookup
	if resolver != nil {
		country = resolver.CountryCode
	}

	var uploader session.RemoteUploader
	if cfg.UploadRemoteRef {
		uploader = model
	}

	app := &handlers.App{
		Sessions: session.NewService(store, blobs.Store, uploader, session.Options{
			MaxBytes: cfg.MaxUploadBytes,
			Logger:   logger,
		}),
		Rating: rating.NewService(store, blobs.Store, model, rating.Options{
			Model:   cfg.GeminiModel,
			Timeout: cfg.RatingTimeout,
			Logger:  logger,
		}),
		Generation: generation.NewService(store, jobs.Queue, publisher, generation.ServiceOptions{
			DefaultModel: cfg.GeminiImageModel,
			Logger:       logger,
		}),
		Jobs: store,
		Search: search.NewAggregator(search.NewCache(nil), bootstrap.NewSerpAPI(cfg), search.Options{
			TTL:           cfg.SearchCacheTTL,
			LookupTimeout: cfg.SearchLookupTimeout,
			Logger:        logger,
		}),
		Hub:               hub,
		Logger:            logger,
		SearchConcurrency: cfg.SearchMaxConcurrency,
		Ping:              store.Ping,
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMin, time.Minute)
	go sweep(ctx, limiter)

	var runner *generation.Runner
	if cfg.InProcessWorkers {
		runner = generation.NewRunner(store, blobs.Store, model, jobs.Queue, publisher, generation.RunnerOptions{
			Workers:    cfg.WorkerConcurrency,
			JobTimeout: cfg.WorkerJobTimeout,
			Logger:     logger,
		})
		// workers outlive the signal; Shutdown drains them
		runner.Start(context.WithoutCancel(ctx))
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		Limiter:     limiter,
		Country:     country,
		StaticDir:   blobs.StaticDir,
	})
	server := infra.NewHTTPServer(cfg, router)

	logger.Info().
		Str("addr", server.Addr()).
		Str("db", cfg.DatabaseDriver).
		Str("storage", cfg.StorageDriver).
		Str("queue", cfg.QueueDriver).
		Bool("workers", cfg.InProcessWorkers).
		Msg("api listening")
	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}

	if runner != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.WorkerJobTimeout)
		defer cancel()
		if err := runner.Shutdown(drainCtx); err != nil {
			logger.Warn().Err(err).Msg("job runner did not drain")
		}
	}
	logger.Info().Msg("api stopped")
}

func sweep(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep()
		}
	}
}
