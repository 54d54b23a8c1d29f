package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/luyandamncube/openclaw-mission-control/internal/config"
	"github.com/luyandamncube/openclaw-mission-control/pkg/client"
	"github.com/luyandamncube/openclaw-mission-control/pkg/logging"
	"github.com/luyandamncube/openclaw-mission-control/pkg/metrics"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		addr    string
		apiURL  string
		redisTo string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the list view server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.HTTPAddr = addr
			}
			if flags.Changed("api") {
				cfg.APIBaseURL = apiURL
			}
			if flags.Changed("redis") {
				cfg.RedisAddr = redisTo
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	flags.StringVar(&addr, "addr", "", "listen address (overrides MC_HTTP_ADDR)")
	flags.StringVar(&apiURL, "api", "", "Mission Control API base URL (overrides MC_API_BASE_URL)")
	flags.StringVar(&redisTo, "redis", "", "Redis address for the shared cache (overrides MC_REDIS_ADDR)")
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	logging.Setup(cfg.Logging())
	logger := logging.NewLogger(logging.ComponentWeb)

	clientCfg := client.DefaultConfig(cfg.APIBaseURL)
	clientCfg.Token = cfg.APIToken
	clientCfg.UserAgent = cfg.UserAgent
	clientCfg.Timeout = cfg.APITimeout
	clientCfg.CacheTTL = cfg.CacheTTL
	clientCfg.MaxRetries = cfg.MaxRetries

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
		clientCfg.Redis = rdb
	}

	mc, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	srv := newServer(mc, cfg.PageSize, logger, metrics.NewHTTPMetrics(metrics.Registry))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.HTTPAddr).
			Str("api", cfg.APIBaseURL).
			Str("version", version).
			Msg("Starting mission-control-web")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
