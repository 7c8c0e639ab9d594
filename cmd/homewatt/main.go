package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/homewatt/internal/api"
	"codeberg.org/mutker/homewatt/internal/config"
	"codeberg.org/mutker/homewatt/internal/device"
	"codeberg.org/mutker/homewatt/internal/errors"
	"codeberg.org/mutker/homewatt/internal/history"
	"codeberg.org/mutker/homewatt/internal/logger"
	"codeberg.org/mutker/homewatt/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		var coded errors.Error
		if errors.As(err, &coded) {
			logger.FatalWithCode(coded).Msg("service failed")
		}
		logger.Fatal().Err(err).Msg("service failed")
	}
	logger.Info().Msg("Exiting...")
}

func run(ctx context.Context) error {
	source, err := telemetry.NewHTTPSource(telemetryConfig())
	if err != nil {
		return err
	}

	cache, err := telemetry.NewCache(telemetryConfig(), source)
	if err != nil {
		return err
	}

	historyCfg := history.DefaultConfig()
	historyCfg.Enabled = cfg.History
	if cfg.HistoryDB != "" {
		historyCfg.DBPath = cfg.HistoryDB
	}
	recorder, err := history.NewService(historyCfg)
	if err != nil {
		return err
	}
	defer recorder.Close()

	cache.OnRefresh(func(snapshot *telemetry.Snapshot) {
		if err := recorder.Record(context.Background(), snapshot); err != nil {
			logger.Warn().Err(err).Msg("snapshot history write failed")
		}
	})

	storeCfg := device.DefaultConfig()
	storeCfg.Addr = cfg.RedisAddr
	storeCfg.Password = cfg.RedisPassword
	storeCfg.DB = cfg.RedisDB
	if err := storeCfg.Validate(); err != nil {
		return err
	}

	client := device.NewRedisClient(storeCfg)
	defer client.Close()

	registry := device.NewRegistry(device.NewRedisStore(client), device.NewHub())
	server := api.NewServer(cfg.ListenAddr, cache, registry)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return registry.Run(ctx) })
	g.Go(func() error { return server.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func telemetryConfig() telemetry.Config {
	channels := make([]telemetry.Channel, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		channels = append(channels, telemetry.Channel{
			Name:           ch.Name,
			Label:          ch.Label,
			Color:          ch.Color,
			BenchmarkWatts: ch.BenchmarkWatts,
		})
	}

	return telemetry.Config{
		BaseURL:      cfg.TelemetryURL,
		FetchTimeout: time.Duration(cfg.FetchTimeout) * time.Second,
		TTL:          time.Duration(cfg.CacheTTL) * time.Second,
		Window:       time.Duration(cfg.WindowHours) * time.Hour,
		Channels:     channels,
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
