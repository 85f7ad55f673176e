package observability

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

type ModelLatencyStats struct {
	Model   string  `json:"model"`
	Samples int     `json:"samples"`
	Errors  int     `json:"errors"`
	LastMS  float64 `json:"last_ms"`
	AvgMS   float64 `json:"avg_ms"`
	P50MS   float64 `json:"p50_ms"`
	P95MS   float64 `json:"p95_ms"`
	P99MS   float64 `json:"p99_ms"`
}

type LatencySnapshot struct {
	GeneratedAt time.Time           `json:"generated_at"`
	WindowSize  int                 `json:"window_size"`
	Models      []ModelLatencyStats `json:"models"`
}

// latencyWindow keeps the last maxSamples completion latencies per model in a ring buffer.
type latencyWindow struct {
	mu         sync.RWMutex
	maxSamples int
	models     map[string]*latencyBuffer
}

type latencyBuffer struct {
	values []float64
	next   int
	filled bool
	last   float64
	errors int
}

func newLatencyWindow(maxSamples int) *latencyWindow {
	if maxSamples <= 0 {
		maxSamples = 256
	}
	return &latencyWindow{
		maxSamples: maxSamples,
		models:     make(map[string]*latencyBuffer),
	}
}

func (w *latencyWindow) buffer(model string) *latencyBuffer {
	buf, ok := w.models[model]
	if !ok {
		buf = &latencyBuffer{values: make([]float64, w.maxSamples)}
		w.models[model] = buf
	}
	return buf
}

func (w *latencyWindow) Observe(model string, ms float64) {
	model = strings.TrimSpace(model)
	if model == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	buf := w.buffer(model)
	buf.values[buf.next] = ms
	buf.last = ms
	buf.next++
	if buf.next >= len(buf.values) {
		buf.next = 0
		buf.filled = true
	}
}

func (w *latencyWindow) ObserveError(model string) {
	model = strings.TrimSpace(model)
	if model == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer(model).errors++
}

func (w *latencyWindow) Snapshot() LatencySnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	keys := make([]string, 0, len(w.models))
	for model := range w.models {
		keys = append(keys, model)
	}
	sort.Strings(keys)

	models := make([]ModelLatencyStats, 0, len(keys))
	for _, model := range keys {
		buf := w.models[model]
		n := buf.next
		if buf.filled {
			n = len(buf.values)
		}
		stats := ModelLatencyStats{Model: model, Samples: n, Errors: buf.errors}
		if n > 0 {
			samples := make([]float64, n)
			copy(samples, buf.values[:n])
			sort.Float64s(samples)

			sum := 0.0
			for _, v := range samples {
				sum += v
			}
			stats.LastMS = round2(buf.last)
			stats.AvgMS = round2(sum / float64(n))
			stats.P50MS = round2(quantile(samples, 0.50))
			stats.P95MS = round2(quantile(samples, 0.95))
			stats.P99MS = round2(quantile(samples, 0.99))
		}
		models = append(models, stats)
	}

	return LatencySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.maxSamples,
		Models:      models,
	}
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := q * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
