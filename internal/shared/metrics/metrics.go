package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	intakeStartedTotal   atomic.Uint64
	intakeCompletedTotal atomic.Uint64
	intakeFailedTotal    atomic.Uint64
	intakeRejectedTotal  atomic.Uint64

	hydrationLoadsTotal    atomic.Uint64
	hydrationNotFoundTotal atomic.Uint64
	hydrationProblemsTotal atomic.Uint64

	conversionFailedTotal atomic.Uint64
	wipesTotal            atomic.Uint64

	intakeDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncIntakeStarted increments the started counter.
func IncIntakeStarted() {
	intakeStartedTotal.Add(1)
}

// IncIntakeCompleted increments the completed counter.
func IncIntakeCompleted() {
	intakeCompletedTotal.Add(1)
}

// IncIntakeFailed increments the failed counter.
func IncIntakeFailed() {
	intakeFailedTotal.Add(1)
}

// IncIntakeRejected counts submissions refused before any step ran.
func IncIntakeRejected() {
	intakeRejectedTotal.Add(1)
}

// ObserveIntakeDurationMs records an intake duration in milliseconds.
func ObserveIntakeDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	intakeDuration.Observe(value)
}

// IncHydrationLoad counts detail view loads.
func IncHydrationLoad() {
	hydrationLoadsTotal.Add(1)
}

// IncHydrationNotFound counts loads that ended in the empty state.
func IncHydrationNotFound() {
	hydrationNotFoundTotal.Add(1)
}

// AddHydrationProblems counts sub-results that failed during a load.
func AddHydrationProblems(n int) {
	if n > 0 {
		hydrationProblemsTotal.Add(uint64(n))
	}
}

// IncConversionFailed counts failed PDF previews.
func IncConversionFailed() {
	conversionFailedTotal.Add(1)
}

// IncWipe counts bulk wipes.
func IncWipe() {
	wipesTotal.Add(1)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "intake_started_total", "Total intake submissions started", intakeStartedTotal.Load())
	writeCounter(&buf, "intake_completed_total", "Total intake submissions completed", intakeCompletedTotal.Load())
	writeCounter(&buf, "intake_failed_total", "Total intake submissions failed", intakeFailedTotal.Load())
	writeCounter(&buf, "intake_rejected_total", "Total intake submissions rejected before processing", intakeRejectedTotal.Load())
	writeCounter(&buf, "hydration_loads_total", "Total resume detail loads", hydrationLoadsTotal.Load())
	writeCounter(&buf, "hydration_not_found_total", "Total resume detail loads without a record", hydrationNotFoundTotal.Load())
	writeCounter(&buf, "hydration_problems_total", "Total failed hydration sub-results", hydrationProblemsTotal.Load())
	writeCounter(&buf, "conversion_failed_total", "Total failed PDF previews", conversionFailedTotal.Load())
	writeCounter(&buf, "maintenance_wipes_total", "Total bulk wipes", wipesTotal.Load())
	writeHistogram(&buf, "intake_duration_ms", "Intake duration in milliseconds", intakeDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SinceMillis returns the milliseconds elapsed since start.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
