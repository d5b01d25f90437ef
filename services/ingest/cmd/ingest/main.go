package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"saral/internal/util"
	"saral/pkg/ingest"
	"saral/pkg/queue"
	"saral/pkg/storage"
	"saral/pkg/store"
	"saral/services/ingest/internal/app"
	"saral/services/ingest/internal/config"
	"saral/services/ingest/internal/server"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger("ingest", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("ingest worker stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.FileConfig, logger *slog.Logger) error {
	st, err := store.Open(ctx, store.Options{Driver: cfg.StoreDriver, DSN: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	objects, err := newObjectStore(cfg)
	if err != nil {
		return err
	}

	q, err := queue.NewRedisJobQueue(queue.RedisQueueConfig{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		Stream:     cfg.QueueName,
		Group:      cfg.QueueGroup,
		MaxRetries: cfg.QueueMaxRetries,
		RetryDelay: cfg.RetryDelay(),
	})
	if err != nil {
		return fmt.Errorf("ingest queue: %w", err)
	}
	defer q.Close()

	pipeline := ingest.NewPipeline(objects, st).WithChunker(ingest.Chunker{
		Size:    cfg.ChunkSize,
		Overlap: cfg.ChunkOverlap,
	})
	worker, err := app.New(app.Config{
		Queue:       q,
		Pipeline:    pipeline,
		Concurrency: cfg.QueueConcurrency,
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	httpServer, err := server.New(server.Config{App: worker})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}
	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(util.ContextWithLogger(gctx, logger.With("component", "consumer")))
	})
	g.Go(func() error {
		logger.Info("ingest server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newObjectStore(cfg config.FileConfig) (storage.ObjectStore, error) {
	if cfg.MinioEndpoint != "" {
		s, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		return s, nil
	}
	s, err := storage.NewFileStore(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("file storage: %w", err)
	}
	return s, nil
}
