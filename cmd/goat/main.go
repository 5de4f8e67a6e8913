package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/goatlabs/goat/config"
	"github.com/goatlabs/goat/engine"
	"github.com/goatlabs/goat/executor"
	"github.com/goatlabs/goat/history"
	"github.com/goatlabs/goat/indicator"
	"github.com/goatlabs/goat/logger"
	"github.com/goatlabs/goat/marketdata"
	"github.com/goatlabs/goat/portfolio"
	"github.com/goatlabs/goat/scorer"
	"github.com/goatlabs/goat/strategy"
)

const defaultStartingCash = 10_000

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "goat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "configs/goat.yaml"
	if v := os.Getenv("GOAT_CONFIG"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.NewZapLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var store history.Store
	if cfg.Database.SQLitePath != "" {
		sqls, err := history.NewSQLiteStore(cfg.Database.SQLitePath, cfg.Database.MaxPriceRecords, cfg.Database.MaxTradeRecords)
		if err != nil {
			log.Warn("sqlite unavailable, falling back to in-memory history", logger.Err(err))
			store = history.NewMemoryStore(cfg.Database.MaxPriceRecords, cfg.Database.MaxTradeRecords)
		} else {
			defer sqls.Close()
			store = sqls
		}
	} else {
		store = history.NewMemoryStore(cfg.Database.MaxPriceRecords, cfg.Database.MaxTradeRecords)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rest := marketdata.NewRESTClient(cfg, log)
	var source marketdata.Source = rest
	if cfg.Exchange.WSURL != "" {
		feed := marketdata.NewWSFeed(cfg.Exchange.WSURL, log)
		go feed.Run(ctx)
		source = &marketdata.FallbackSource{Primary: feed, Secondary: rest}
	}

	ens := strategy.NewEnsemble(cfg, log,
		strategy.NewRegistry(cfg, rng),
		strategy.NewSelector(cfg, rng),
		indicator.NewCalculator(cfg),
	)
	startingCash := float64(defaultStartingCash)
	if wallet, err := rest.Balance(ctx); err != nil {
		log.Warn("balance query failed, using default starting cash", logger.Err(err))
	} else if usd, ok := wallet["USD"]; ok && usd.Free > 0 {
		startingCash = usd.Free
	}

	ledger := portfolio.NewLedger(cfg, log, startingCash)
	sc := scorer.New(cfg, log, store, marketdata.NewChartClient(log))

	var placer executor.OrderPlacer = executor.NewPaperPlacer(log)
	if cfg.Exchange.LiveOrders {
		placer = rest
	}

	eng := engine.New(cfg, log, source, store, sc, ens, ledger, placer)

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Error("metrics server stopped", logger.Err(err))
			}
		}()
	}

	// A cycle that outlasts the interval (slow REST calls, cold chart
	// cache) must not overlap the next firing.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	schedule := fmt.Sprintf("@every %ds", cfg.Exchange.FetchIntervalSec)
	if _, err := c.AddFunc(schedule, func() {
		if err := eng.Cycle(ctx); err != nil {
			log.Error("cycle failed", logger.Err(err))
		}
	}); err != nil {
		return fmt.Errorf("register trading cycle: %w", err)
	}
	c.Start()

	log.Info("goat running",
		logger.String("base_url", cfg.Exchange.BaseURL),
		logger.Int("interval_sec", cfg.Exchange.FetchIntervalSec),
		logger.Int("seed", int(seed)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, liquidating open positions")
	<-c.Stop().Done()

	liqCtx, liqCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer liqCancel()
	finalValue, sharpe := eng.Liquidate(liqCtx)

	log.Info("goat stopped",
		logger.Float64("final_value", finalValue),
		logger.Float64("sharpe", sharpe),
	)
	return nil
}
