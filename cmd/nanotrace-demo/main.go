// Command nanotrace-demo is a configuration-driven harness that
// exercises the producer side end to end: it opens a ring buffer and
// spawns a fixed number of pinned worker goroutines, each emitting at
// a steady rate, so the decoder has a real buffer and producer binary
// to decode against.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nanotrace/nanotrace/config"
	"github.com/nanotrace/nanotrace/internal/logging"
	"github.com/nanotrace/nanotrace/producer"
	"github.com/nanotrace/nanotrace/record"
)

var (
	startMsg = "worker started"
	tickMsg  = "tick"
)

func main() {
	cfgPath := "nanotrace.toml"
	if p := os.Getenv("NANOTRACE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config %s: %v", cfgPath, err)
	}

	locType := locTypeFromConfig(cfg.Producer.LocType)

	var opts []producer.Option
	if cfg.Producer.SingleThread {
		opts = append(opts, producer.WithSingleThreaded())
	}
	if err := producer.Init(cfg.Buffer.Path, cfg.Buffer.Capacity, locType, opts...); err != nil {
		log.Fatalf("producer.Init: %v", err)
	}
	defer producer.Deinit()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	workers := cfg.Producer.Workers
	if workers <= 0 {
		workers = 1
	}
	rate := cfg.Producer.EmitPerSec
	if rate <= 0 {
		rate = 10
	}
	interval := time.Second / time.Duration(rate)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			runWorker(ctx, id, interval)
		}(int64(i))
	}

	logging.Default().Info("nanotrace-demo running", "workers", workers, "emit_per_sec", rate)
	wg.Wait()
	logging.Default().Info("nanotrace-demo stopped")
}

func runWorker(ctx context.Context, id int64, interval time.Duration) {
	h := producer.PinWorker()
	producer.EmitAs(h, 0, &startMsg, id, 0)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var n int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			producer.EmitAs(h, 0, &tickMsg, id, n)
			n++
		}
	}
}

func locTypeFromConfig(s string) record.LocType {
	switch s {
	case "table":
		return record.LocTable
	case "section":
		return record.LocSection
	default:
		return record.LocNone
	}
}
