package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	appcontainer "goldroom/internal/application/container"
	"goldroom/internal/application/usecase/coordinator"
	"goldroom/internal/domain"
	"goldroom/internal/infrastructure/config"
	infracontainer "goldroom/internal/infrastructure/container"
	"goldroom/internal/infrastructure/exchange/gfinance"
	"goldroom/internal/infrastructure/exchange/treasury"
	"goldroom/internal/infrastructure/logger"
	"goldroom/internal/infrastructure/metrics"
	"goldroom/internal/interfaces/console"
	"goldroom/internal/interfaces/httpapi"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func main() {
	logger.Setup("info")

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := infracontainer.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init storage failed")
	}
	defer infra.Close()

	// feeds (infrastructure -> application ports)
	push := treasury.New(cfg.Feed.Treasury.WsURL, cfg.Feed.Treasury.Channel, cfg.Feed.Treasury.Event)
	var pull coordinator.PullFeed
	if cfg.UsdEnabled() {
		pull = gfinance.New(cfg.Feed.Usd.URL, ms(cfg.Feed.Usd.TimeoutMs))
	} else {
		log.Warn().Msg("usd/idr feed disabled by config")
	}

	var recorder coordinator.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.Recorder{}
	}

	app := appcontainer.New(coordinator.ServiceDeps{
		PushFeed: push,
		PullFeed: pull,
		Repo:     infra.StateRepository(),
		Recorder: recorder,
		Limits: domain.Limits{
			MaxHistory:    cfg.History.MaxEntries,
			MaxUsdHistory: cfg.History.MaxUsdEntries,
			SeenCapacity:  cfg.History.SeenCapacity,
		},
		DefaultLimit:   cfg.History.DefaultLimit,
		Interval:       ms(cfg.Loop.IntervalMs),
		PullEvery:      ms(cfg.Loop.PullEveryMs),
		HeartbeatEvery: ms(cfg.Loop.HeartbeatEveryMs),
		PullTimeout:    ms(cfg.Feed.Usd.TimeoutMs),
	})
	svc := app.Coordinator()

	opts := httpapi.Options{
		AdminSecret:      cfg.Admin.Secret,
		MinLimit:         cfg.Admin.MinLimit,
		MaxLimit:         cfg.Admin.MaxLimit,
		AdminMinInterval: ms(cfg.Admin.MinIntervalMs),
		Limiter:          httpapi.NewIPLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.MaxClients),
	}
	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
		opts.MetricsHandler = metrics.Handler()
	}
	server := httpapi.NewServer(cfg.HTTP.Addr, httpapi.NewHandler(svc, opts))

	log.Info().
		Str("config", *configPath).
		Str("addr", cfg.HTTP.Addr).
		Int("limit", cfg.History.DefaultLimit).
		Bool("usd_feed", cfg.UsdEnabled()).
		Bool("metrics", cfg.Metrics.Enabled).
		Msg("goldroom started")

	if cfg.App.Console {
		go func() {
			if err := svc.Join(ctx, console.NewSink(os.Stdout)); err != nil {
				log.Warn().Err(err).Msg("console sink not attached")
			}
		}()
	}

	if err := serve(ctx, svc, server); err != nil {
		log.Error().Err(err).Msg("goldroom exited")
		infra.Close()
		os.Exit(1)
	}
	log.Info().Msg("goldroom stopped")
}

type runner interface {
	Run(ctx context.Context) error
}

// serve runs the coordinator and the HTTP server until ctx is cancelled or
// either of them fails; the first failure stops the other.
func serve(ctx context.Context, coord, http runner) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := coord.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("coordinator: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := http.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}
