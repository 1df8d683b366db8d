package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"saun/internal/bootstrap"
	"saun/internal/events"
	"saun/internal/generation"
	"saun/internal/infra"
)

// The worker consumes job ids from the Redis queue and publishes transitions
// back to the API over Redis pub/sub.
func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")
	if cfg.QueueDriver != infra.QueueDriverRedis {
		logger.Fatal().Str("queue", cfg.QueueDriver).Msg("worker: QUEUE_DRIVER must be redis")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: open store")
	}
	defer store.Close()

	blobs, err := bootstrap.OpenBlobs(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: open blob storage")
	}

	model, err := bootstrap.NewGenAI(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: configure gemini client")
	}

	jobs, err := bootstrap.OpenQueue(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: open job queue")
	}
	defer jobs.Close()

	runner := generation.NewRunner(store, blobs.Store, model, jobs.Queue,
		events.NewRedisPublisher(jobs.Redis, cfg.EventsChannel, logger),
		generation.RunnerOptions{
			Workers:    cfg.WorkerConcurrency,
			JobTimeout: cfg.WorkerJobTimeout,
			Logger:     logger,
		})
	runner.Start(context.WithoutCancel(ctx))
	logger.Info().Int("workers", cfg.WorkerConcurrency).Str("queue", cfg.QueueKey).Msg("worker: started")

	<-ctx.Done()
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.WorkerJobTimeout)
	defer cancel()
	if err := runner.Shutdown(drainCtx); err != nil {
		logger.Warn().Err(err).Msg("worker: did not drain")
	}
	logger.Info().Msg("worker: stopped")
}
