// Package metrics accumulates run counters and timings and renders them in
// the Prometheus text exposition format, suitable for a node_exporter textfile
// collector.
package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/RowanDark/xorlab/internal/observability/tracing"
)

type collector interface {
	write(sb *strings.Builder)
}

// CounterVec is a monotonically increasing value per label set.
type CounterVec struct {
	name   string
	help   string
	labels []string

	mu     sync.RWMutex
	values map[string]float64
}

// HistogramVec buckets observations per label set.
type HistogramVec struct {
	name    string
	help    string
	labels  []string
	buckets []float64

	mu     sync.RWMutex
	values map[string]*histogramValue
}

type histogramValue struct {
	counts   []uint64
	sum      float64
	total    uint64
	exemplar *metricExemplar
}

type metricExemplar struct {
	traceID string
	value   float64
}

// Registry holds the collectors written by WriteTo.
type Registry struct {
	mu         sync.Mutex
	collectors []collector

	// Runs counts finished commands by outcome.
	Runs *CounterVec
	// CandidatesScored counts key bytes tried.
	CandidatesScored *CounterVec
	// Duration records how long each command took.
	Duration *HistogramVec
}

// NewRegistry creates a registry with the xorlab collectors.
func NewRegistry() *Registry {
	r := &Registry{
		Runs:             newCounterVec("xorlab_runs_total", "Number of xorlab commands run.", []string{"command", "outcome"}),
		CandidatesScored: newCounterVec("xorlab_candidates_scored_total", "Number of candidate key bytes scored.", []string{"command"}),
		Duration:         newHistogramVec("xorlab_command_duration_seconds", "Wall-clock duration of xorlab commands.", []string{"command"}),
	}
	r.collectors = []collector{r.Runs, r.CandidatesScored, r.Duration}
	return r
}

func newCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{name: name, help: help, labels: labels, values: make(map[string]float64)}
}

func newHistogramVec(name, help string, labels []string) *HistogramVec {
	buckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	return &HistogramVec{
		name:    name,
		help:    help,
		labels:  labels,
		buckets: buckets,
		values:  make(map[string]*histogramValue),
	}
}

func (cv *CounterVec) add(delta float64, values ...string) {
	if len(values) != len(cv.labels) {
		panic(fmt.Sprintf("expected %d labels, got %d", len(cv.labels), len(values)))
	}
	key := strings.Join(values, ",")
	cv.mu.Lock()
	cv.values[key] += delta
	cv.mu.Unlock()
}

// IncWith adds one to the series identified by values.
func (cv *CounterVec) IncWith(values ...string) {
	cv.add(1, values...)
}

// AddWith adds delta to the series identified by values.
func (cv *CounterVec) AddWith(delta float64, values ...string) {
	cv.add(delta, values...)
}

func (cv *CounterVec) write(sb *strings.Builder) {
	writeHeader(sb, cv.name, cv.help, "counter")
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	for _, key := range sortedKeys(cv.values) {
		sb.WriteString(cv.name)
		writeLabels(sb, cv.labels, strings.Split(key, ","), "")
		sb.WriteString(fmt.Sprintf(" %g\n", cv.values[key]))
	}
}

// ObserveWithContext records sample for the series identified by values. When
// ctx carries an active trace its ID is kept as the series exemplar.
func (hv *HistogramVec) ObserveWithContext(ctx context.Context, values []string, sample float64) {
	hv.observe(values, sample, exemplarFromContext(ctx, sample))
}

func (hv *HistogramVec) observe(values []string, sample float64, ex *metricExemplar) {
	if len(values) != len(hv.labels) {
		panic(fmt.Sprintf("expected %d labels, got %d", len(hv.labels), len(values)))
	}
	key := strings.Join(values, ",")
	hv.mu.Lock()
	defer hv.mu.Unlock()
	entry, ok := hv.values[key]
	if !ok {
		entry = &histogramValue{counts: make([]uint64, len(hv.buckets)+1)}
		hv.values[key] = entry
	}
	entry.sum += sample
	entry.total++
	idx := sort.SearchFloat64s(hv.buckets, sample)
	entry.counts[idx]++
	if ex != nil {
		entry.exemplar = ex
	}
}

func (hv *HistogramVec) write(sb *strings.Builder) {
	writeHeader(sb, hv.name, hv.help, "histogram")
	hv.mu.RLock()
	defer hv.mu.RUnlock()
	for _, key := range sortedKeys(hv.values) {
		entry := hv.values[key]
		parts := strings.Split(key, ",")
		cumulative := uint64(0)
		for i, upper := range hv.buckets {
			cumulative += entry.counts[i]
			sb.WriteString(hv.name + "_bucket")
			writeLabels(sb, hv.labels, parts, fmt.Sprintf("le=\"%g\"", upper))
			sb.WriteString(fmt.Sprintf(" %d\n", cumulative))
		}
		cumulative += entry.counts[len(hv.buckets)]
		sb.WriteString(hv.name + "_bucket")
		writeLabels(sb, hv.labels, parts, `le="+Inf"`)
		sb.WriteString(fmt.Sprintf(" %d\n", cumulative))

		sb.WriteString(hv.name + "_sum")
		writeLabels(sb, hv.labels, parts, "")
		sb.WriteString(fmt.Sprintf(" %g", entry.sum))
		if entry.exemplar != nil {
			sb.WriteString(fmt.Sprintf(" # {trace_id=\"%s\"} %g", escapeLabel(entry.exemplar.traceID), entry.exemplar.value))
		}
		sb.WriteString("\n")

		sb.WriteString(hv.name + "_count")
		writeLabels(sb, hv.labels, parts, "")
		sb.WriteString(fmt.Sprintf(" %d\n", entry.total))
	}
}

// Render returns every collector in exposition format.
func (r *Registry) Render() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sb strings.Builder
	for _, c := range r.collectors {
		c.write(&sb)
	}
	return sb.String()
}

// WriteFile atomically replaces path with the rendered metrics.
func (r *Registry) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".metrics-*")
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	if _, err := tmp.WriteString(r.Render()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write metrics: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace metrics file: %w", err)
	}
	return nil
}

func writeHeader(sb *strings.Builder, name, help, metricType string) {
	sb.WriteString("# HELP " + name + " " + help + "\n")
	sb.WriteString("# TYPE " + name + " " + metricType + "\n")
}

// writeLabels renders {k="v",...}, appending extra verbatim when set.
func writeLabels(sb *strings.Builder, labels, values []string, extra string) {
	if len(labels) == 0 && extra == "" {
		return
	}
	pairs := make([]string, 0, len(labels)+1)
	for i, label := range labels {
		pairs = append(pairs, label+"=\""+escapeLabel(values[i])+"\"")
	}
	if extra != "" {
		pairs = append(pairs, extra)
	}
	sb.WriteString("{" + strings.Join(pairs, ",") + "}")
}

func exemplarFromContext(ctx context.Context, sample float64) *metricExemplar {
	if ctx == nil {
		return nil
	}
	traceID := tracing.TraceIDFromContext(ctx)
	if traceID == "" {
		return nil
	}
	return &metricExemplar{traceID: traceID, value: sample}
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	return strings.ReplaceAll(v, `"`, `\"`)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
