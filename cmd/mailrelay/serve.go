package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/shineum/mailrelay/internal/cache"
	"github.com/shineum/mailrelay/internal/config"
	"github.com/shineum/mailrelay/internal/logger"
	"github.com/shineum/mailrelay/internal/middleware"
	"github.com/shineum/mailrelay/internal/relay"
	"github.com/shineum/mailrelay/internal/telemetry"
	relaytls "github.com/shineum/mailrelay/internal/tls"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the send-email relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, newLogger(cfg))
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	var tp trace.TracerProvider
	if cfg.Telemetry.Enabled {
		sdkTP, err := telemetry.InitTracer(cfg.Telemetry.ServiceName, os.Stderr)
		if err != nil {
			return err
		}
		defer func() {
			if err := telemetry.Shutdown(context.Background(), sdkTP); err != nil {
				log.Error().Err(err).Msg("error shutting down tracer")
			}
		}()
		tp = sdkTP
	}

	prov, err := selectProvider(ctx, cfg, log)
	if err != nil {
		return err
	}

	var (
		counter middleware.Counter
		health  relay.HealthChecker
	)
	if cfg.RateLimitEnabled() {
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		counter, health = rdb, rdb
		log.Info().
			Str("redis", cfg.Redis.Addr).
			Int("requests", cfg.RateLimit.Requests).
			Dur("window", cfg.RateLimit.Window).
			Msg("rate limiting enabled")
	}

	handler := relay.NewHandler(relay.Config{
		Provider:       prov,
		DefaultFrom:    cfg.Relay.DefaultFrom,
		MaxBodyBytes:   cfg.Relay.MaxBodyBytes,
		Logger:         log,
		Redis:          health,
		TracerProvider: tp,
	})
	router := relay.NewRouter(handler, middleware.New(counter, log), middleware.RateLimitConfig{
		Limit:  cfg.RateLimit.Requests,
		Window: cfg.RateLimit.Window,
	})

	srvCfg := relay.ServerConfig{
		ListenAddr: cfg.Relay.Listen,
		Handler:    router,
		Logger:     log,
	}
	tlsMode := "disabled"
	if cfg.TLS.Enabled {
		srvCfg.TLSConfig, err = relaytls.LoadOrGenerateTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return err
		}
		tlsMode = relaytls.Mode(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}

	log.Info().
		Str("listen", cfg.Relay.Listen).
		Str("provider", prov.Name()).
		Str("tls_mode", tlsMode).
		Bool("telemetry", cfg.Telemetry.Enabled).
		Msg("starting mailrelay")

	if err := relay.NewServer(srvCfg).ListenAndServe(ctx); err != nil {
		return err
	}

	log.Info().Msg("mailrelay stopped")
	return nil
}
