// Package main — cmd/fathombench/main.go
//
// fathombench measures per-cycle latency of MetricsEngine.Push and
// ComplexityEngine.Process on synthetic multi-channel data, reporting
// p50/p95/p99 and writing per-iteration CSV.
//
// Method:
//  1. Generate `channels` sine-derived signals pushed in round-robin at a
//     fixed sample interval.
//  2. Time each MetricsEngine.Push call; when it returns a snapshot, time
//     the ComplexityEngine.Process call that consumes it.
//  3. Write per-iteration CSV to the output file; print p50/p95/p99 to
//     stdout.
//
// Output CSV columns: iteration, push_latency_us, process_latency_us, flushed
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/fathomio/fathom-core/internal/align"
	"github.com/fathomio/fathom-core/internal/complexity"
	"github.com/fathomio/fathom-core/internal/metrics"
	"github.com/fathomio/fathom-core/internal/window"
)

func main() {
	iterations := flag.Int("iterations", 20000, "Number of Push calls to measure")
	channelCount := flag.Int("channels", 8, "Number of synthetic channels")
	outputFile := flag.String("output", "fathombench_raw.csv", "Output CSV file path")
	stepMs := flag.Uint64("step-ms", 100, "Sample interval in milliseconds")
	flag.Parse()

	f, err := os.Create(*outputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	_ = w.Write([]string{"iteration", "push_latency_us", "process_latency_us", "flushed"})

	metricsCfg := metrics.DefaultConfig()
	metricsCfg.Trigger = metrics.Trigger{Kind: metrics.EveryNFlushes, N: *channelCount}
	metricsCfg.Missing = align.MissingPolicy{Kind: align.MissingAllowPartial, MinChannels: 1}
	metricsCfg.Entropy.MinAlignedSamples = 8

	metricsEngine := metrics.New(window.TimeWindow(600_000), metricsCfg, nil)
	complexityEngine := complexity.New(complexity.DefaultConfig(), nil)

	channels := make([]string, *channelCount)
	for i := range channels {
		channels[i] = fmt.Sprintf("ch_%d", i)
	}

	var (
		pushLatencies    = make([]int, *iterations)
		processLatencies [10001]int
		flushedCount     int
	)

	now := uint64(0)
	for i := 0; i < *iterations; i++ {
		ch := channels[i%len(channels)]
		v := math.Sin(float64(i)*0.01) * 10

		start := time.Now()
		snap, err := metricsEngine.Push(ch, v, now)
		if err != nil {
			fmt.Fprintf(os.Stderr, "push rejected: %v\n", err)
			os.Exit(1)
		}
		pushLatencyUs := int(time.Since(start).Microseconds())
		pushLatencies[i] = pushLatencyUs

		processLatencyUs := 0
		flushed := false
		if snap != nil {
			flushed = true
			flushedCount++
			input := complexity.ToComplexityInput(snap)
			pstart := time.Now()
			complexityEngine.Process(input)
			processLatencyUs = int(time.Since(pstart).Microseconds())
			if processLatencyUs < len(processLatencies) {
				processLatencies[processLatencyUs]++
			}
		}

		_ = w.Write([]string{
			strconv.Itoa(i),
			strconv.Itoa(pushLatencyUs),
			strconv.Itoa(processLatencyUs),
			strconv.FormatBool(flushed),
		})

		now += *stepMs
	}

	pushP50, pushP95, pushP99 := percentilesFromSlice(pushLatencies)
	procP50, procP95, procP99 := percentilesFromHistogram(processLatencies[:], flushedCount)

	fmt.Printf("fathombench (%d iterations, %d channels)\n", *iterations, *channelCount)
	fmt.Printf("  Push latency:    p50=%dus p95=%dus p99=%dus\n", pushP50, pushP95, pushP99)
	fmt.Printf("  Process latency: p50=%dus p95=%dus p99=%dus (over %d flushed cycles)\n",
		procP50, procP95, procP99, flushedCount)
	fmt.Printf("  Output: %s\n", *outputFile)

	if pushP99 > 5000 {
		fmt.Fprintf(os.Stderr, "WARN: push p99 %dus exceeds 5000us\n", pushP99)
	}
}

func percentilesFromSlice(xs []int) (p50, p95, p99 int) {
	sorted := append([]int(nil), xs...)
	sort.Ints(sorted)
	n := len(sorted)
	if n == 0 {
		return 0, 0, 0
	}
	return sorted[pctIndex(n, 0.50)], sorted[pctIndex(n, 0.95)], sorted[pctIndex(n, 0.99)]
}

func pctIndex(n int, p float64) int {
	idx := int(p * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func percentilesFromHistogram(hist []int, total int) (p50, p95, p99 int) {
	if total == 0 {
		return 0, 0, 0
	}
	targets := []struct {
		pct float64
		out *int
	}{
		{0.50, &p50},
		{0.95, &p95},
		{0.99, &p99},
	}
	cumulative := 0
	ti := 0
	for i, count := range hist {
		cumulative += count
		for ti < len(targets) && float64(cumulative) >= targets[ti].pct*float64(total) {
			*targets[ti].out = i
			ti++
		}
		if ti == len(targets) {
			break
		}
	}
	return
}
