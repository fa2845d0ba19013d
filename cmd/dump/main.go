// Command dump prices a large ticker list in chunks and streams the results
// to a JSON file.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"portfolioquotes/internal/cache"
	"portfolioquotes/internal/config"
	"portfolioquotes/internal/httpx"
	"portfolioquotes/internal/logging"
	"portfolioquotes/internal/pricing"
)

type entry struct {
	Ticker string `json:"ticker"`
	pricing.Result
}

func main() {
	var (
		tickersFile string
		outPath     string
		cfgPath     string
		chunkSize   int
		concurrency int
		timeoutSec  int
	)
	flag.StringVar(&tickersFile, "tickers-file", "tickers.json", "JSON array, JSON object keyed by ticker, or one ticker per line")
	flag.StringVar(&outPath, "out", "prices.json", "output JSON file path")
	flag.StringVar(&cfgPath, "config", "", "path to config.json (optional)")
	flag.IntVar(&chunkSize, "chunk", 50, "tickers per batch call")
	flag.IntVar(&concurrency, "concurrency", 2, "number of chunks priced in parallel")
	flag.IntVar(&timeoutSec, "timeout", 60, "timeout seconds per chunk")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	tickers, err := readTickers(tickersFile)
	if err != nil {
		logger.Fatal("read tickers", zap.Error(err))
	}
	if len(tickers) == 0 {
		logger.Fatal("no tickers found", zap.String("file", tickersFile))
	}
	logger.Info("tickers loaded", zap.Int("count", len(tickers)))

	store, closeStore, err := cache.Open(context.Background(), cfg.Cache)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	defer func() { _ = closeStore() }()

	svc := pricing.New(
		pricing.BuildChains(cfg.Providers, httpx.New(time.Duration(timeoutSec)*time.Second)),
		cache.New(store, logger),
		pricing.WithLogger(logger),
		pricing.WithMaxConcurrency(cfg.Batch.MaxConcurrency),
	)

	outFile, err := os.Create(outPath)
	if err != nil {
		logger.Fatal("create out", zap.Error(err))
	}
	defer outFile.Close()
	w := newStreamWriter(bufio.NewWriterSize(outFile, 1<<20))

	jobs := make(chan []string, concurrency*2)
	var wg sync.WaitGroup
	for range max(concurrency, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range jobs {
				ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
				res := svc.GetPricesBatch(ctx, chunk)
				cancel()
				if err := w.write(chunk, res); err != nil {
					logger.Error("write chunk", zap.Error(err))
				}
			}
		}()
	}
	for chunk := range slices.Chunk(tickers, max(chunkSize, 1)) {
		jobs <- chunk
	}
	close(jobs)
	wg.Wait()

	if err := w.close(); err != nil {
		logger.Fatal("flush", zap.Error(err))
	}
	logger.Info("dump written", zap.String("out", outPath), zap.Int("priced", w.priced), zap.Int("failed", w.failed))
}

// streamWriter writes a JSON array one entry at a time.
type streamWriter struct {
	mu     sync.Mutex
	bw     *bufio.Writer
	first  bool
	priced int
	failed int
}

func newStreamWriter(bw *bufio.Writer) *streamWriter {
	_, _ = bw.WriteString(`{"prices":[`)
	return &streamWriter{bw: bw, first: true}
}

func (s *streamWriter) write(chunk []string, res map[string]pricing.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range chunk {
		r, ok := res[t]
		if !ok {
			continue
		}
		b, err := json.Marshal(entry{Ticker: t, Result: r})
		if err != nil {
			return fmt.Errorf("encoding %s: %w", t, err)
		}
		if !s.first {
			_ = s.bw.WriteByte(',')
		}
		s.first = false
		_, _ = s.bw.Write(b)
		if r.Error == "" {
			s.priced++
		} else {
			s.failed++
		}
	}
	return nil
}

func (s *streamWriter) close() error {
	_, _ = fmt.Fprintf(s.bw, `],"priced":%d,"failed":%d}`, s.priced, s.failed)
	return s.bw.Flush()
}

// readTickers accepts a JSON array of tickers, a JSON object whose keys are
// tickers, or plain text with one ticker per line. Duplicates are dropped and
// the result is sorted.
func readTickers(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var names []string
	var list []string
	var keyed map[string]json.RawMessage
	switch {
	case json.Unmarshal(b, &list) == nil:
		names = list
	case json.Unmarshal(b, &keyed) == nil:
		for k := range keyed {
			names = append(names, k)
		}
	default:
		trimmed := strings.TrimSpace(string(b))
		if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
			return nil, errors.New("tickers file is not valid JSON")
		}
		names = strings.Split(trimmed, "\n")
	}

	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" && !strings.HasPrefix(n, "#") {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
