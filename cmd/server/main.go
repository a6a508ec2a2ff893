package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"godsaeng/internal/app"
	"godsaeng/internal/config"
	"godsaeng/internal/dispatch"
	"godsaeng/internal/ratelimit"
	"godsaeng/internal/server"
	"godsaeng/internal/util"
	"godsaeng/pkg/token"
)

// queueDispatcher adapts the Redis stream queue to the app's Dispatcher
// interface.
type queueDispatcher struct {
	queue *dispatch.Queue
}

func (d *queueDispatcher) Enqueue(ctx context.Context, lectureID string) error {
	_, err := d.queue.Enqueue(ctx, lectureID)
	return err
}

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	issuer, err := token.New(cfg.JWTSecret,
		time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenTTLHours)*time.Hour)
	if err != nil {
		log.Fatalf("failed to init token issuer: %v", err)
	}

	queue, err := dispatch.NewQueue(dispatch.Config{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		Stream:      cfg.DispatchStream,
		Group:       cfg.DispatchGroup,
		MaxAttempts: cfg.DispatchMaxAttempts,
	})
	if err != nil {
		log.Fatalf("failed to init dispatch queue: %v", err)
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:     cfg.DatabaseURL,
		MinioEndpoint:   cfg.MinioEndpoint,
		MinioAccessKey:  cfg.MinioAccessKey,
		MinioSecretKey:  cfg.MinioSecretKey,
		MinioBucket:     cfg.MinioBucket,
		MinioUseSSL:     cfg.MinioUseSSL,
		AIServiceURL:    cfg.AIServiceURL,
		CallbackBaseURL: cfg.CallbackBaseURL,
		Dispatch:        &queueDispatcher{queue: queue},
		Tokens:          issuer,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var authLimiter *ratelimit.AuthLimiter
	if cfg.AuthRateLimit > 0 {
		authLimiter, err = ratelimit.NewAuthLimiter(
			cfg.RedisAddr, cfg.RedisPassword,
			cfg.AuthRateLimit, time.Duration(cfg.AuthRateWindowSeconds)*time.Second)
		if err != nil {
			log.Fatalf("failed to init auth rate limiter: %v", err)
		}
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		AuthLimiter:    authLimiter,
		TrustedProxies: trustedProxies,
		MaxUploadBytes: cfg.MaxUploadMB * 1024 * 1024,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		queue.Start(ctx, cfg.DispatchConcurrency, appCore.DeliverLecture)
		<-ctx.Done()
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}
