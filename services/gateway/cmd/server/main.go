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

	"saral/internal/ratelimit"
	"saral/internal/util"
	"saral/pkg/ai"
	"saral/pkg/answer"
	"saral/pkg/auth"
	"saral/pkg/ingest"
	"saral/pkg/queue"
	"saral/pkg/simulate"
	"saral/pkg/storage"
	"saral/pkg/store"
	"saral/pkg/watcher"
	"saral/services/gateway/internal/app"
	"saral/services/gateway/internal/config"
	"saral/services/gateway/internal/server"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger("gateway", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("gateway stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.FileConfig, logger *slog.Logger) error {
	st, err := store.Open(ctx, store.Options{Driver: cfg.StoreDriver, DSN: cfg.DatabaseURL, Seed: cfg.Seed()})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	sessions, err := newSessionStore(cfg)
	if err != nil {
		return err
	}
	table, err := auth.NewCredentialTable(cfg.Accounts)
	if err != nil {
		return fmt.Errorf("credential table: %w", err)
	}
	objects, err := newObjectStore(cfg)
	if err != nil {
		return err
	}
	responder, err := newResponder(cfg, st)
	if err != nil {
		return err
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	// With Redis the ingest worker consumes the stream; without it the
	// gateway runs the pipeline itself.
	var jobs queue.Enqueuer
	if cfg.RedisAddr != "" {
		q, err := queue.NewRedisJobQueue(queue.RedisQueueConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.QueueName,
			Group:    "saral-ingest",
		})
		if err != nil {
			return fmt.Errorf("ingest queue: %w", err)
		}
		defer q.Close()
		jobs = q
	} else {
		jobs = ingest.NewLocalQueue(ctx, ingest.NewPipeline(objects, st))
	}

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" && cfg.LoginRateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewFixedWindowLimiter(ratelimit.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Prefix:   "saral:gateway:ratelimit:login",
			Limit:    cfg.LoginRateLimitPerMinute,
			Window:   time.Minute,
		})
		if err != nil {
			return fmt.Errorf("login limiter: %w", err)
		}
		defer limiter.Close()
	}

	hub := server.NewHub(cfg.AllowedOrigins)
	defer hub.Close()

	appCore, err := app.New(app.Config{
		Store:        st,
		Sessions:     sessions,
		Directory:    table,
		Responder:    responder,
		Objects:      objects,
		Jobs:         jobs,
		Events:       hub,
		ConnectDelay: simulate.DefaultConnectDelay,
		ResetDelay:   simulate.DefaultResetDelay,
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer appCore.Close()

	srvCfg := server.Config{
		App:            appCore,
		Hub:            hub,
		TrustedProxies: trusted,
		AllowedOrigins: cfg.AllowedOrigins,
		CookieName:     cfg.SessionCookieName,
		CookieSecure:   cfg.SessionCookieSecure,
		SessionTTL:     cfg.SessionTTL(),
	}
	if limiter != nil {
		srvCfg.LoginLimiter = limiter
	}
	httpServer, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", addr)
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
	g.Go(func() error {
		return appCore.RunSweeper(util.ContextWithLogger(gctx, logger.With("component", "sweeper")), app.DefaultSweepInterval)
	})
	if cfg.InboxDir != "" {
		w, err := watcher.New(cfg.InboxDir, appCore.IngestFile, watcher.Options{
			AllowedExts: simulate.AcceptedExtensions,
			MaxSize:     simulate.MaxFileSize,
		})
		if err != nil {
			return fmt.Errorf("inbox watcher: %w", err)
		}
		g.Go(func() error {
			logger.Info("watching inbox", "dir", cfg.InboxDir)
			return w.Run(util.ContextWithLogger(gctx, logger.With("component", "inbox")))
		})
	}
	return g.Wait()
}

func newSessionStore(cfg config.FileConfig) (store.SessionStore, error) {
	switch {
	case cfg.JWTSecret != "":
		var revoker store.TokenRevoker = store.NewMemoryTokenRevoker()
		if cfg.RedisAddr != "" {
			revoker = store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
		}
		leeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
		if err != nil {
			return nil, err
		}
		sessions, err := store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL(), revoker, store.JWTOptions{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   leeway,
		})
		if err != nil {
			return nil, fmt.Errorf("jwt sessions: %w", err)
		}
		return sessions, nil
	case cfg.RedisAddr != "":
		return store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL()), nil
	default:
		return store.NewMemorySessionStore(cfg.SessionTTL()), nil
	}
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

func newResponder(cfg config.FileConfig, chunks answer.ChunkSearcher) (answer.Responder, error) {
	if cfg.Responder != "gemini" {
		return answer.NewKeywordResponder(answer.DefaultDelay), nil
	}
	client, err := ai.NewGeminiClient(cfg.GeminiKey)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return answer.NewGeneratedResponder(ai.NewGeminiGenerator(client, cfg.GeminiModel), chunks, cfg.TopK), nil
}
