package monitoring

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"slopefs/ml"
)

// MetricType mirrors the Prometheus exposition types.
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

// Metric is one exported sample.
type Metric struct {
	Name   string            `json:"name"`
	Type   MetricType        `json:"type"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
	Help   string            `json:"help,omitempty"`
}

type failureKey struct {
	kind  ml.ErrorKind
	stage ml.Stage
}

type latencySummary struct {
	count int64
	sum   time.Duration
	min   time.Duration
	max   time.Duration
}

func (l *latencySummary) observe(d time.Duration) {
	if l.count == 0 || d < l.min {
		l.min = d
	}
	if d > l.max {
		l.max = d
	}
	l.count++
	l.sum += d
}

// Collector counts served predictions by verdict and failures by kind and
// stage.
type Collector struct {
	mu sync.RWMutex

	startTime    time.Time
	predictions  int64
	cacheHits    int64
	byConclusion map[ml.Classification]int64
	failures     map[failureKey]int64
	latency      latencySummary
}

func NewCollector() *Collector {
	return &Collector{
		startTime:    time.Now(),
		byConclusion: make(map[ml.Classification]int64),
		failures:     make(map[failureKey]int64),
	}
}

func (c *Collector) RecordPrediction(res ml.Result, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.predictions++
	if res.Cached {
		c.cacheHits++
	}
	c.byConclusion[res.Conclusion]++
	c.latency.observe(elapsed)
}

func (c *Collector) RecordFailure(kind ml.ErrorKind, stage ml.Stage, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures[failureKey{kind: kind, stage: stage}]++
	c.latency.observe(elapsed)
}

// FailureCount is the number of failures for one kind at one stage.
type FailureCount struct {
	Kind  ml.ErrorKind `json:"kind"`
	Stage ml.Stage     `json:"stage"`
	Count int64        `json:"count"`
}

type LatencyStats struct {
	Count int64   `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	MinMs float64 `json:"min_ms"`
	MaxMs float64 `json:"max_ms"`
}

type SystemStats struct {
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	GCCount    uint32 `json:"gc_count"`
}

// Snapshot is a point-in-time copy of the collector.
type Snapshot struct {
	Uptime       string                      `json:"uptime"`
	Predictions  int64                       `json:"predictions"`
	CacheHits    int64                       `json:"cache_hits"`
	ByConclusion map[ml.Classification]int64 `json:"by_conclusion"`
	Failures     []FailureCount              `json:"failures"`
	Latency      LatencyStats                `json:"latency"`
	System       SystemStats                 `json:"system"`
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Uptime:       time.Since(c.startTime).Round(time.Second).String(),
		Predictions:  c.predictions,
		CacheHits:    c.cacheHits,
		ByConclusion: make(map[ml.Classification]int64, len(ml.Classifications())),
		Failures:     make([]FailureCount, 0, len(c.failures)),
		Latency: LatencyStats{
			Count: c.latency.count,
			MinMs: millis(c.latency.min),
			MaxMs: millis(c.latency.max),
		},
		System: systemStats(),
	}
	for _, class := range ml.Classifications() {
		snap.ByConclusion[class] = c.byConclusion[class]
	}
	for key, n := range c.failures {
		snap.Failures = append(snap.Failures, FailureCount{Kind: key.kind, Stage: key.stage, Count: n})
	}
	sort.Slice(snap.Failures, func(i, j int) bool {
		a, b := snap.Failures[i], snap.Failures[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Stage < b.Stage
	})
	if c.latency.count > 0 {
		snap.Latency.AvgMs = millis(c.latency.sum) / float64(c.latency.count)
	}
	return snap
}

// Metrics flattens a snapshot into exportable samples.
func (s Snapshot) Metrics() []Metric {
	metrics := []Metric{
		{Name: "slopefs_predictions_total", Type: MetricTypeCounter, Value: float64(s.Predictions), Help: "Successful predictions"},
		{Name: "slopefs_prediction_cache_hits_total", Type: MetricTypeCounter, Value: float64(s.CacheHits), Help: "Predictions answered from cache"},
	}
	for _, class := range ml.Classifications() {
		metrics = append(metrics, Metric{
			Name:   "slopefs_conclusions_total",
			Type:   MetricTypeCounter,
			Value:  float64(s.ByConclusion[class]),
			Labels: map[string]string{"conclusion": string(class)},
			Help:   "Successful predictions by conclusion",
		})
	}
	for _, f := range s.Failures {
		metrics = append(metrics, Metric{
			Name:   "slopefs_prediction_failures_total",
			Type:   MetricTypeCounter,
			Value:  float64(f.Count),
			Labels: map[string]string{"kind": string(f.Kind), "stage": string(f.Stage)},
			Help:   "Failed predictions by error kind and stage",
		})
	}
	metrics = append(metrics,
		Metric{Name: "slopefs_request_latency_avg_ms", Type: MetricTypeGauge, Value: s.Latency.AvgMs, Help: "Mean evaluation latency"},
		Metric{Name: "slopefs_request_latency_max_ms", Type: MetricTypeGauge, Value: s.Latency.MaxMs, Help: "Max evaluation latency"},
		Metric{Name: "system_goroutines", Type: MetricTypeGauge, Value: float64(s.System.Goroutines), Help: "Number of goroutines"},
		Metric{Name: "memory_heap_alloc", Type: MetricTypeGauge, Value: float64(s.System.HeapAlloc), Help: "Memory heap allocated in bytes"},
	)
	return metrics
}

// ExportPrometheus renders the snapshot in the Prometheus text format.
func (s Snapshot) ExportPrometheus() string {
	var b strings.Builder
	seen := make(map[string]bool)
	for _, m := range s.Metrics() {
		if !seen[m.Name] {
			seen[m.Name] = true
			fmt.Fprintf(&b, "# HELP %s %s\n", m.Name, m.Help)
			fmt.Fprintf(&b, "# TYPE %s %s\n", m.Name, m.Type)
		}
		fmt.Fprintf(&b, "%s%s %g\n", m.Name, renderLabels(m.Labels), m.Value)
	}
	return b.String()
}

func renderLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func systemStats() SystemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return SystemStats{
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  m.HeapAlloc,
		HeapSys:    m.HeapSys,
		GCCount:    m.NumGC,
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
