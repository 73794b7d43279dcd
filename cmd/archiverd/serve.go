package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/archivekit/webarchiver/internal/cronscheduler"
	"github.com/archivekit/webarchiver/internal/jobprocessor"
	"github.com/archivekit/webarchiver/internal/metadata"
	"github.com/archivekit/webarchiver/internal/runtimeconfig"
	"github.com/archivekit/webarchiver/internal/storage"
	"github.com/archivekit/webarchiver/internal/store"
	"github.com/archivekit/webarchiver/pkg/hashutil"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the crawl worker pool and schedule promoter",
	Long: `serve opens the badger-backed database and Redis connection, starts
WORKER_CONCURRENCY job processors pulling from the crawl queue, and runs
the cron scheduler that promotes due sites into new jobs. It blocks
until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	runtimeCfg := runtimeconfig.Load()

	db, err := store.Open(runtimeCfg.DataDir, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	sites := store.NewSiteStore(db)
	crawls := store.NewCrawlStore(db)
	logs := store.NewCrawlLogStore(db)
	settings := store.NewSettingsStore(db)

	redisClient := goredis.NewClient(&goredis.Options{Addr: runtimeCfg.RedisAddr})
	defer redisClient.Close()

	queue := jobprocessor.NewQueue(redisClient)
	pub := jobprocessor.NewPublisher(redisClient)
	storageSink := storage.NewLocalSink(metadata.NewRecorder(logger), hashutil.HashAlgoSHA256)

	engines := newEngineFactory(crawls, settings, runtimeCfg, runtimeCfg.TempDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	for i := 0; i < runtimeCfg.WorkerConcurrency; i++ {
		processor := jobprocessor.NewProcessor(sites, crawls, logs, storageSink, queue, pub, engines, runtimeCfg.TempDir, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := processor.Run(ctx); err != nil {
				logger.Warn().Err(err).Msg("job processor exited")
			}
		}()
	}

	scheduler := cronscheduler.NewScheduler(sites, crawls, queue, redisClient, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	logger.Info().
		Int("workers", runtimeCfg.WorkerConcurrency).
		Str("redis", runtimeCfg.RedisAddr).
		Str("dataDir", runtimeCfg.DataDir).
		Msg("archiverd serving - press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutdown signal received, draining workers")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out waiting for workers to drain")
	}

	logger.Info().Msg("archiverd stopped")
	return nil
}
