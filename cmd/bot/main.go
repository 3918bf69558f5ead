package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alejandrodnm/mintbot/config"
	feedws "github.com/alejandrodnm/mintbot/internal/adapters/feed"
	"github.com/alejandrodnm/mintbot/internal/adapters/jupiter"
	"github.com/alejandrodnm/mintbot/internal/adapters/notify"
	"github.com/alejandrodnm/mintbot/internal/adapters/screener"
	"github.com/alejandrodnm/mintbot/internal/adapters/solana"
	"github.com/alejandrodnm/mintbot/internal/adapters/storage"
	"github.com/alejandrodnm/mintbot/internal/application/autobuy"
	"github.com/alejandrodnm/mintbot/internal/application/executor"
	feedapp "github.com/alejandrodnm/mintbot/internal/application/feed"
	"github.com/alejandrodnm/mintbot/internal/application/monitor"
	"github.com/alejandrodnm/mintbot/internal/control"
	"github.com/alejandrodnm/mintbot/internal/obs"
	"github.com/alejandrodnm/mintbot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if cfg.WalletKey == "" {
		slog.Error("WALLET_PRIVATE_KEY is required")
		os.Exit(1)
	}

	wallet, err := solana.NewWallet(cfg.WalletKey)
	if err != nil {
		slog.Error("failed to load wallet", "err", err)
		os.Exit(1)
	}

	tp, sl, partials := cfg.StrategyDefaults()

	slog.Info("mintbot starting",
		"config", *configPath,
		"wallet", wallet.PublicKey(),
		"strategy", cfg.Strategy.Profile,
		"tp_pct", tp, "sl_pct", sl, "partial_exits", partials,
		"autopilot_source", cfg.Autopilot.Source,
	)

	rpc := solana.NewRPCClient(cfg.RPC.URL, cfg.RPCTimeout())
	routes := jupiter.NewClient(cfg.Jupiter.BaseURL, cfg.Executor.PriorityFeeLamports)

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole()

	engine := executor.New(routes, rpc, wallet, executor.Config{
		MaxShards:      cfg.Executor.MaxShards,
		MinShardSOL:    cfg.Executor.MinShardSOL,
		ExitShards:     cfg.Executor.ExitShards,
		ShardDelay:     cfg.ShardDelay(),
		HardImpactPct:  cfg.Executor.HardImpactPct,
		SoftImpactPct:  cfg.Executor.SoftImpactPct,
		MaxSlippageBps: cfg.Executor.MaxSlippageBps,
	})

	mon := monitor.New(routes, rpc, engine, store, notifier, wallet.PublicKey(), monitor.Config{
		Interval:     cfg.MonitorInterval(),
		SlippageBps:  cfg.Executor.EntrySlippageBps,
		PartialExits: partials,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	state, err := autobuy.LoadState(ctx, store)
	if err != nil {
		slog.Error("failed to load autopilot state", "err", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup
	spawn := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				slog.Error(name+" exited with error", "err", err)
				cancel()
			}
		}()
	}

	// Fuente de candidatos: feed de momentum (websocket) o screener HTTP.
	var source ports.CandidateSource
	if cfg.Autopilot.Source == "screener" {
		source = screener.NewClient(cfg.Screener.BaseURL)
	} else {
		aggregator := feedapp.NewAggregator(feedws.NewWSSource(cfg.Feed.URL), cfg.FeedRetention())
		spawn("feed aggregator", aggregator.Run)
		source = aggregator
	}

	selector := autobuy.New(state, source, engine, store, notifier, autobuy.Config{
		Interval:      cfg.AutopilotInterval(),
		SlippageBps:   cfg.Executor.EntrySlippageBps,
		TakeProfitPct: tp,
		StopLossPct:   sl,
	})

	dispatcher := control.NewDispatcher(engine, rpc, wallet.PublicKey(), store, state, notifier, control.Config{
		SlippageBps:      cfg.Executor.EntrySlippageBps,
		SnipeSlippageBps: cfg.Executor.MaxSlippageBps,
		TakeProfitPct:    tp,
		StopLossPct:      sl,
	})
	ctrl := control.NewServer(dispatcher, control.NewAllowList(cfg.Control.AllowedIDs), cfg.Control.ListenAddr)

	spawn("monitor", mon.Run)
	spawn("selector", selector.Run)
	spawn("control server", ctrl.Run)
	spawn("metrics server", func(ctx context.Context) error {
		return runMetrics(ctx, cfg.Metrics.ListenAddr)
	})

	wg.Wait()
	slog.Info("mintbot stopped cleanly")
}

// runMetrics expone el endpoint de Prometheus hasta que ctx se cancele.
func runMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", obs.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
