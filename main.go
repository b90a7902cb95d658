// Copyright 2025 Certen Labs
//
// Curve tree service daemon: keeps a CurveTree and a WalletTracking
// instance warm, drains an OutputSource in a background goroutine, and
// serves the HTTP surface in pkg/server. Structured after the teacher's
// root main.go: flag parsing overriding env config, a context+signal
// shutdown sequence, and a net/http.ServeMux handed to an http.Server
// with a bounded graceful shutdown.

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/certen-labs/curvetree/pkg/collaborators"
	"github.com/certen-labs/curvetree/pkg/config"
	"github.com/certen-labs/curvetree/pkg/metrics"
	"github.com/certen-labs/curvetree/pkg/server"
	"github.com/certen-labs/curvetree/pkg/storage"
	"github.com/certen-labs/curvetree/pkg/tree"
	"github.com/certen-labs/curvetree/pkg/wallet"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Printf("starting curve tree service")

	var (
		dataDir     = flag.String("data-dir", "", "data directory (overrides CURVETREE_DATA_DIR)")
		listenAddr  = flag.String("listen-addr", "", "HTTP listen address (overrides CURVETREE_LISTEN_ADDR)")
		storageKind = flag.String("storage-kind", "", "storage backend: memory or durable (overrides CURVETREE_STORAGE_KIND)")
		showHelp    = flag.Bool("help", false, "show this help message")
	)
	flag.Parse()

	if *showHelp {
		flag.Usage()
		return
	}

	cfg := config.Load()
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *storageKind != "" {
		cfg.StorageKind = *storageKind
	}
	log.Printf("configuration: data_dir=%s storage_kind=%s listen_addr=%s", cfg.DataDir, cfg.StorageKind, cfg.ListenAddr)

	treeCfg := tree.DefaultConfig()
	if cfg.TreeConfigPath != "" {
		loaded, err := tree.LoadConfig(cfg.TreeConfigPath)
		if err != nil {
			log.Fatalf("failed to load tree config override: %v", err)
		}
		treeCfg = loaded
	}

	store, err := storage.Open(storage.Kind(cfg.StorageKind), "curvetree", cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}

	reg := prometheus.DefaultRegisterer
	m := metrics.New(reg)

	curveTree, err := tree.New(storage.NewMetered(store, m), treeCfg)
	if err != nil {
		log.Fatalf("failed to initialize curve tree: %v", err)
	}
	log.Printf("curve tree ready: output_count=%d depth=%d", mustCount(curveTree), curveTree.Depth())

	walletTracking := wallet.NewTracking(curveTree)

	m.TreeDepth.Set(float64(curveTree.Depth()))

	ctx, cancel := context.WithCancel(context.Background())

	source := collaborators.NewStaticOutputSource(nil)
	go runIngestLoop(ctx, curveTree, source, m)
	go runIntegrityLoop(ctx, curveTree, 5*time.Minute, m)

	handlers := server.New(curveTree, walletTracking, m)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handlers.Mux(),
	}

	go func() {
		log.Printf("HTTP surface listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := curveTree.Save(); err != nil {
		log.Printf("failed to persist tree metadata on shutdown: %v", err)
	}

	log.Printf("curve tree service stopped")
}

// runIngestLoop drains source into t until ctx is canceled or the source
// is permanently exhausted (the default StaticOutputSource with nothing
// buffered exhausts immediately; a real deployment wires in a
// collaborators.OutputSource backed by the consensus engine here).
func runIngestLoop(ctx context.Context, t *tree.CurveTree, source collaborators.OutputSource, m *metrics.Metrics) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		out, err := source.Next(ctx)
		if err != nil {
			if errors.Is(err, collaborators.ErrExhausted) {
				log.Printf("output source exhausted, ingest loop idle")
				return
			}
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("ingest loop error: %v", err)
			return
		}

		start := time.Now()
		_, err = t.AddOutput(out.Tuple)
		m.InsertLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			log.Printf("failed to insert output at leaf %d: %v", out.LeafIndex, err)
			continue
		}
		m.OutputsInserted.Inc()
		m.TreeDepth.Set(float64(t.Depth()))
	}
}

// runIntegrityLoop periodically re-verifies the tree's persisted state
// against its cached root and depth, counting failures and driving an
// automatic rebuild when one is detected. CurveTree.Rebuild holds the
// tree's write lock for its entire duration, so concurrent AddOutput
// calls block until the rebuild completes rather than observing a
// half-rebuilt tree.
func runIntegrityLoop(ctx context.Context, t *tree.CurveTree, interval time.Duration, m *metrics.Metrics) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := t.VerifyIntegrity(); err != nil {
			log.Printf("integrity check failed, rebuilding: %v", err)
			m.IntegrityFailures.Inc()
			if err := t.Rebuild(); err != nil {
				log.Printf("rebuild after integrity failure also failed: %v", err)
				continue
			}
			m.RebuildsTotal.Inc()
		}
	}
}

func mustCount(t *tree.CurveTree) uint64 {
	count, err := t.OutputCount()
	if err != nil {
		return 0
	}
	return count
}
