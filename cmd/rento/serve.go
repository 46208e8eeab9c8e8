package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"rento/api"
	"rento/metrics"
	"rento/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(load loadFunc) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := store.Open(cfg.Database)
			if err != nil {
				return err
			}
			if migrate {
				if err := store.Migrate(db, log); err != nil {
					return err
				}
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.New(reg)

			lim, err := buildLimiters(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer lim.Close()

			srv := api.New(api.Options{
				Repo:                store.NewGormRepository(db),
				Auth:                api.NewAuthenticator(cfg.Auth.SigningKey, cfg.Auth.Issuer),
				Windows:             lim.Windows,
				Policies:            lim.Policies,
				Edge:                lim.Edge,
				Stats:               lim.Stats,
				ConcurrencyMax:      cfg.RateLimit.Concurrency.Max,
				ConcurrencyTimeout:  cfg.RateLimit.Concurrency.AcquireTimeout,
				AddRateLimitHeaders: cfg.RateLimit.AddHeaders,
				TrustXForwardedFor:  cfg.HTTP.TrustXForwardedFor,
				Metrics:             m,
				Logger:              log,
			})

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Warn("shutdown", zap.Error(err))
				}
			}()

			log.Info("listening",
				zap.String("addr", cfg.HTTP.Addr),
				zap.String("env", cfg.App.Environment),
				zap.String("db", cfg.Database.Driver),
				zap.String("ratelimit_backend", cfg.RateLimit.Backend),
				zap.String("ratelimit_stats", cfg.RateLimit.Stats),
				zap.Float64("edge_rps", cfg.RateLimit.Edge.RPS),
				zap.Int("edge_burst", cfg.RateLimit.Edge.Burst),
				zap.Int("concurrency_max", cfg.RateLimit.Concurrency.Max))

			start := time.Now()
			if err := srv.Start(cfg.HTTP.Addr, cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			log.Info("stopped", zap.Duration("uptime", time.Since(start)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "run schema migrations before serving")
	return cmd
}
