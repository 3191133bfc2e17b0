package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openrange/orbbot/internal/adapters"
	"github.com/openrange/orbbot/internal/config"
	"github.com/openrange/orbbot/internal/events"
	"github.com/openrange/orbbot/internal/observ"
	"github.com/openrange/orbbot/internal/ops"
	"github.com/openrange/orbbot/internal/orb"
	"github.com/openrange/orbbot/internal/outbox"
	"github.com/openrange/orbbot/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	observ.Init(cfg.LogLevel)
	observ.Log("starting", map[string]any{
		"symbol":        cfg.Strategy.Symbol,
		"range_minutes": cfg.Strategy.RangeMinutes,
		"data_source":   cfg.Data.Source,
	})

	sink, hub, err := buildSinks(cfg)
	if err != nil {
		observ.Error("sink_setup_failed", err, nil)
		os.Exit(1)
	}
	defer sink.Close()

	journal, err := outbox.New(cfg.Broker.OutboxPath, cfg.Broker.DedupeWindowSecs)
	if err != nil {
		observ.Error("outbox_setup_failed", err, nil)
		os.Exit(1)
	}
	broker := adapters.NewPaperBroker(journal)

	data, err := adapters.NewMarketData(adapters.DataSourceConfig{
		Source: cfg.Data.Source,
		Okami: adapters.OkamiConfig{
			BaseURL:            cfg.Data.Okami.BaseURL,
			Token:              os.Getenv(cfg.Data.Okami.TokenEnv),
			TimeoutSeconds:     cfg.Data.Okami.TimeoutSeconds,
			RateLimitPerMinute: cfg.Data.Okami.RateLimitPerMinute,
			MaxRetries:         cfg.Data.Okami.MaxRetries,
			BackoffBaseMs:      cfg.Data.Okami.BackoffBaseMs,
		},
		History: adapters.HistoryConfig{
			BaseURL:        cfg.Data.History.BaseURL,
			TimeoutSeconds: cfg.Data.History.TimeoutSeconds,
		},
	})
	if err != nil {
		observ.Error("market_data_setup_failed", err, nil)
		os.Exit(1)
	}
	defer data.Close()

	ctrl := strategy.New(strategy.Options{
		Symbol:          cfg.Strategy.Symbol,
		Quantity:        cfg.Strategy.Quantity,
		TakeProfitPct:   cfg.Strategy.TakeProfitPct,
		StopLossPct:     cfg.Strategy.StopLossPct,
		BufferPct:       cfg.Strategy.BufferPct,
		RangeMinutes:    cfg.Strategy.RangeMinutes,
		Direction:       orb.Direction(cfg.Strategy.TradeDirection),
		Filters:         orb.FilterSet{UseRegime: cfg.Filters.Regime, UseVWAP: cfg.Filters.VWAP, UseVolume: cfg.Filters.Volume},
		CatchUp:         orb.CatchUp{Enabled: cfg.CatchUp.Enabled, LateWindow: time.Duration(cfg.CatchUp.LateWindowMinutes) * time.Minute},
		HybridBackfill:  cfg.CatchUp.HybridBackfill,
		Clock:           sessionClock(cfg.Session),
		VolumeSMAPeriod: cfg.Indicators.VolumeSMAPeriod,
		RegimeEMAPeriod: cfg.Indicators.RegimeEMAPeriod,
		RegimeDays:      cfg.Indicators.RegimeDays,
	}, data, broker, sink)

	srv := ops.NewServer(cfg.Ops.Addr, ctrl, hub)
	go func() {
		if err := srv.Start(); err != nil {
			observ.Error("ops_server_failed", err, nil)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := strategy.NewScheduler(time.Duration(cfg.PollIntervalSeconds)*time.Second, ctrl)
	sched.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	observ.Log("stopped", nil)
}

func buildSinks(cfg config.Root) (events.Sink, *events.SSEHub, error) {
	hub := events.NewSSEHub()
	sinks := events.Fanout{hub}

	jsonl, err := events.NewJSONLSink(cfg.Events.JSONLPath)
	if err != nil {
		return nil, nil, err
	}
	sinks = append(sinks, jsonl)

	if cfg.Events.PostgresEnabled {
		dsn := os.Getenv(cfg.Events.PostgresDSNEnv)
		if dsn == "" {
			return nil, nil, fmt.Errorf("postgres sink enabled but %s is unset", cfg.Events.PostgresDSNEnv)
		}
		pg, err := events.NewPostgresSink(dsn)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pg)
	}
	return sinks, hub, nil
}

func sessionClock(s config.Session) orb.SessionClock {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		observ.Warn("bad_timezone", map[string]any{"tz": s.Timezone, "err": err.Error()})
		return orb.NewYorkSession()
	}
	return orb.SessionClock{Location: loc, OpenHour: s.OpenHour, OpenMinute: s.OpenMinute}
}
