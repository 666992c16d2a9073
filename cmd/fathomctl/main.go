// Package main — cmd/fathomctl/main.go
//
// fathomctl embeds the Metrics/Complexity core as a standalone process for
// local testing and offline analysis: it reads newline-delimited JSON
// sample records from stdin (or -input), drives MetricsEngine/
// ComplexityEngine exactly as an embedding gateway process would, and
// prints each resulting ComplexitySnapshot as one JSON line to stdout.
//
// Input record shape (one per line):
//
//	{"channel": "temp_0", "value": 21.4, "ts_ms": 1000}
//	{"channel": "temp_0", "value": 21.6, "ts_ms": 2000, "frame_hex": "deadbeef"}
//
// frame_hex, when present, stages a payload buffer for the next flush;
// it is hex-decoded and attached whole-frame, with no
// per-channel byte ranges (those require the external frame builder this
// core does not own).
//
// Startup sequence:
//  1. Load and validate config.
//  2. Initialise structured logger (zap).
//  3. Open BoltDB storage.
//  4. Prune stale event records.
//  5. Start Prometheus metrics server.
//  6. Construct MetricsEngine + ComplexityEngine from config.
//  7. Run the ingest loop until EOF or SIGINT/SIGTERM.
//
// Shutdown sequence:
//  1. Persist the locked baseline (if any); events are already written
//     as each snapshot arrives.
//  2. Close BoltDB.
//  3. Flush logger.
package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fathomio/fathom-core/internal/complexity"
	fconfig "github.com/fathomio/fathom-core/internal/config"
	"github.com/fathomio/fathom-core/internal/metrics"
	"github.com/fathomio/fathom-core/internal/observability"
	"github.com/fathomio/fathom-core/internal/storage"
)

type sampleRecord struct {
	Channel  string  `json:"channel"`
	Value    float64 `json:"value"`
	TsMs     uint64  `json:"ts_ms"`
	FrameHex string  `json:"frame_hex,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (defaults if omitted)")
	inputPath := flag.String("input", "-", "Path to newline-delimited JSON sample input, or - for stdin")
	version := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("fathomctl %s (commit=%s built=%s)\n",
			fconfig.Version, fconfig.GitCommit, fconfig.BuildTime)
		os.Exit(0)
	}

	// ── Step 1: Load config ───────────────────────────────────────────────────
	cfg := fconfig.Defaults()
	if *configPath != "" {
		loaded, err := fconfig.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: config load failed: %v\n", err)
			os.Exit(1)
		}
		cfg = *loaded
	}

	// ── Step 2: Logger ────────────────────────────────────────────────────────
	log, err := buildLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("fathomctl starting",
		zap.String("version", fconfig.Version),
		zap.String("node_id", cfg.NodeID),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Step 3: Storage ───────────────────────────────────────────────────────
	db, err := storage.Open(cfg.Storage.DBPath, cfg.Storage.RetentionDays)
	if err != nil {
		log.Fatal("storage open failed", zap.Error(err), zap.String("path", cfg.Storage.DBPath))
	}
	defer db.Close() //nolint:errcheck
	log.Info("storage opened", zap.String("path", cfg.Storage.DBPath))

	// ── Step 4: Prune stale events ────────────────────────────────────────────
	if pruned, err := db.PruneOldEvents(); err != nil {
		log.Warn("event pruning failed", zap.Error(err))
	} else {
		log.Info("events pruned", zap.Int("deleted", pruned))
	}

	// ── Step 5: Metrics server ────────────────────────────────────────────────
	obs := observability.NewMetrics()
	if n, err := db.CountEvents(); err == nil {
		obs.SetLedgerEntries(n)
	}
	go func() {
		if err := obs.ServeMetrics(ctx, cfg.Observability.MetricsAddr); err != nil {
			log.Error("metrics server error", zap.Error(err))
		}
	}()
	log.Info("metrics server started", zap.String("addr", cfg.Observability.MetricsAddr))

	// ── Step 6: Engines ───────────────────────────────────────────────────────
	metricsCfg, err := cfg.Metrics.ToMetricsConfig()
	if err != nil {
		log.Fatal("invalid metrics config", zap.Error(err))
	}
	complexityCfg, err := cfg.Complexity.ToComplexityConfig()
	if err != nil {
		log.Fatal("invalid complexity config", zap.Error(err))
	}

	metricsEngine := metrics.New(cfg.Metrics.ToWindowPolicy(), metricsCfg, log)
	complexityEngine := complexity.New(complexityCfg, log)

	// ── SIGINT/SIGTERM ────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	// ── Step 7: Ingest loop ───────────────────────────────────────────────────
	in, closeIn, err := openInput(*inputPath)
	if err != nil {
		log.Fatal("input open failed", zap.Error(err))
	}
	defer closeIn()

	var lastSeenChannels []string
	encoder := json.NewEncoder(os.Stdout)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			log.Info("shutdown requested, stopping ingest loop")
			goto drained
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec sampleRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Warn("skipping malformed input record", zap.Error(err))
			continue
		}
		if rec.Channel == "" {
			log.Warn("skipping record with empty channel")
			continue
		}

		if rec.FrameHex != "" {
			buf, err := hex.DecodeString(rec.FrameHex)
			if err != nil {
				log.Warn("skipping malformed frame_hex", zap.Error(err))
			} else {
				metricsEngine.StageFrame(buf, nil)
			}
		}

		snap, err := metricsEngine.Push(rec.Channel, rec.Value, rec.TsMs)
		if err != nil {
			log.Warn("sample rejected", zap.Error(err), zap.String("channel", rec.Channel))
			continue
		}
		obs.ObserveSamplePush(rec.Channel, metricsEngine.OutOfOrderCount(rec.Channel))
		obs.ObserveMetricsSnapshot(snap)
		if snap == nil {
			continue
		}

		input := complexity.ToComplexityInput(snap)
		lastSeenChannels = channelIDsOf(input)

		cSnap := complexityEngine.Process(input)
		obs.ObserveComplexitySnapshot(cSnap)
		if cSnap == nil {
			continue
		}

		for _, ev := range cSnap.Events {
			start := time.Now()
			err := db.AppendEvent(storage.EventRecordFrom(cfg.NodeID, ev))
			obs.ObserveStorageWrite(time.Since(start))
			if err != nil {
				log.Error("event persist failed", zap.Error(err))
			}
		}
		if len(cSnap.Events) > 0 {
			if n, err := db.CountEvents(); err == nil {
				obs.SetLedgerEntries(n)
			}
		}

		data, err := cSnap.ToJSON()
		if err != nil {
			log.Error("snapshot marshal failed", zap.Error(err))
			continue
		}
		if err := encoder.Encode(json.RawMessage(data)); err != nil {
			log.Error("snapshot write failed", zap.Error(err))
		}
	}
drained:
	if err := scanner.Err(); err != nil && err != io.EOF {
		log.Error("input read error", zap.Error(err))
	}

	persistBaseline(db, obs, cfg.NodeID, complexityEngine, lastSeenChannels, log)

	log.Info("fathomctl shutdown complete")
}

// channelIDsOf extracts the channel id set carried by one InputSnapshot,
// used to know which per-channel baseline keys to persist at shutdown.
func channelIDsOf(input complexity.InputSnapshot) []string {
	ids := make([]string, len(input.ChannelEntropies))
	for i, ce := range input.ChannelEntropies {
		ids[i] = ce.ChannelID
	}
	return ids
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" || path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// persistBaseline writes the engine's locked baseline statistics, if any,
// to storage. No-op while the baseline is still building.
func persistBaseline(db *storage.DB, obs *observability.Metrics, nodeID string, engine *complexity.Engine, channelIDs []string, log *zap.Logger) {
	if !engine.BaselineLocked() {
		log.Info("baseline not locked at shutdown; nothing to persist")
		return
	}

	stats := make(map[string]storage.StatRecord)
	for _, key := range complexity.TrackedMetricKeys(channelIDs) {
		mean, std, n, ok := engine.BaselineStat(key)
		if !ok {
			continue
		}
		stats[key] = storage.StatRecord{Mean: mean, Std: std, N: n}
	}

	rec := storage.BaselineRecord{
		NodeID:     nodeID,
		LockedAtMs: engine.BaselineLockedAtMs(),
		Stats:      stats,
	}
	start := time.Now()
	err := db.PutBaseline(rec)
	obs.ObserveStorageWrite(time.Since(start))
	if err != nil {
		log.Error("baseline persist failed", zap.Error(err))
		return
	}
	log.Info("baseline persisted", zap.Int("tracked_keys", len(stats)))
}

func buildLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	return cfg.Build()
}
