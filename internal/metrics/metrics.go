// Package metrics collects in-process job counters and duration
// histograms for the worker pool, on a periodic background tick.
package metrics

import (
	"log"
	"runtime"
	"sync"
	"time"
)

// Histogram tracks the distribution of values across fixed buckets.
type Histogram struct {
	mu      sync.RWMutex
	buckets []float64
	counts  []int64
	sum     float64
	count   int64
}

// NewHistogram creates a new histogram with specified buckets.
func NewHistogram(buckets []float64) *Histogram {
	return &Histogram{
		buckets: buckets,
		counts:  make([]int64, len(buckets)+1),
	}
}

// Observe adds a value to the histogram.
func (h *Histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += value
	h.count++

	for i, bucket := range h.buckets {
		if value <= bucket {
			h.counts[i]++
			return
		}
	}
	h.counts[len(h.buckets)]++
}

// Summary returns histogram summary.
func (h *Histogram) Summary() HistogramSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return HistogramSummary{
		Count:   h.count,
		Sum:     h.sum,
		Buckets: append([]float64{}, h.buckets...),
		Counts:  append([]int64{}, h.counts...),
	}
}

// HistogramSummary contains histogram data.
type HistogramSummary struct {
	Count   int64
	Sum     float64
	Buckets []float64
	Counts  []int64
}

// MetricsCollector is a counter/histogram sink for job outcomes, plus a
// background tick that logs goroutine/memory stats for operators
// watching the worker process.
type MetricsCollector struct {
	mu         sync.RWMutex
	counters   map[string]int64
	histograms map[string]*Histogram

	ticker *time.Ticker
	done   chan struct{}
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]int64),
		histograms: make(map[string]*Histogram),
		done:       make(chan struct{}),
	}
}

// Start begins periodic system-metrics logging.
func (mc *MetricsCollector) Start(interval time.Duration) {
	mc.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-mc.ticker.C:
				mc.logSystemMetrics()
			case <-mc.done:
				return
			}
		}
	}()
}

// Stop stops the metrics collector.
func (mc *MetricsCollector) Stop() {
	if mc.ticker != nil {
		mc.ticker.Stop()
	}
	close(mc.done)
}

// logSystemMetrics logs runtime-level metrics for the worker process.
func (mc *MetricsCollector) logSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	log.Printf("metrics: alloc=%dB goroutines=%d gc_pause=%v",
		m.Alloc, runtime.NumGoroutine(), time.Duration(m.PauseTotalNs))
}

// IncrementCounter increments a named counter.
func (mc *MetricsCollector) IncrementCounter(name string, value int64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.counters[name] += value
}

// ObserveHistogram adds a value to a named histogram.
func (mc *MetricsCollector) ObserveHistogram(name string, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, exists := mc.histograms[name]; !exists {
		// Default buckets for response times (in milliseconds).
		buckets := []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}
		mc.histograms[name] = NewHistogram(buckets)
	}

	mc.histograms[name].Observe(value)
}
