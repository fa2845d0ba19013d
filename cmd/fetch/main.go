// Command fetch prices a few tickers once and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"portfolioquotes/internal/aggregate"
	"portfolioquotes/internal/cache"
	"portfolioquotes/internal/config"
	"portfolioquotes/internal/httpx"
	"portfolioquotes/internal/logging"
	"portfolioquotes/internal/pricing"
)

func main() {
	var (
		tickersCSV string
		consensus  bool
		providers  bool
		timeout    int
		configPath string
	)
	flag.StringVar(&tickersCSV, "tickers", os.Getenv("TICKERS"), "comma-separated tickers, e.g. AAPL,PETR4.SA,BTC-USD")
	flag.BoolVar(&consensus, "consensus", false, "query every provider and print the median price")
	flag.BoolVar(&providers, "providers", false, "print provider status instead of prices")
	flag.IntVar(&timeout, "timeout", 0, "overall timeout seconds (defaults to REQUEST_TIMEOUT_SEC)")
	flag.StringVar(&configPath, "config", "", "path to config.json (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if timeout > 0 {
		cfg.Server.RequestTimeoutSec = timeout
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	defer cancel()

	svc := pricing.New(
		pricing.BuildChains(cfg.Providers, httpx.New(cfg.RequestTimeout())),
		cache.New(cache.NewMemory(cfg.Cache.MaxItems), logger),
		pricing.WithLogger(logger),
		pricing.WithMaxConcurrency(cfg.Batch.MaxConcurrency),
	)

	if providers {
		printJSON(svc.ValidateProviders(ctx))
		return
	}

	tickers := splitCSV(tickersCSV)
	if len(tickers) == 0 {
		logger.Fatal("no tickers provided")
	}

	start := time.Now()
	if consensus {
		printJSON(consensusAll(ctx, svc, tickers, cfg.Batch.MaxConcurrency))
	} else {
		printJSON(svc.GetPricesBatch(ctx, tickers))
	}
	logger.Debug("fetch finished", zap.Int("tickers", len(tickers)), zap.Duration("elapsed", time.Since(start)))
}

type consensusPricer interface {
	GetPriceConsensus(ctx context.Context, ticker string) aggregate.Consensus
}

// consensusAll queries the consensus of every ticker concurrently, at most
// limit at a time when limit is positive.
func consensusAll(ctx context.Context, p consensusPricer, tickers []string, limit int) map[string]aggregate.Consensus {
	out := make(map[string]aggregate.Consensus, len(tickers))
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, t := range tickers {
		g.Go(func() error {
			c := p.GetPriceConsensus(ctx, t)
			mu.Lock()
			out[t] = c
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	fmt.Println(string(b))
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
