package observability

import (
	"sort"
	"sync"
	"time"

	"github.com/danmuck/wirecodec/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OpMarshal   = "marshal"
	OpUnmarshal = "unmarshal"
)

var (
	registerOnce sync.Once

	codecOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wirecodec",
			Subsystem: "codec",
			Name:      "operations_total",
			Help:      "Codec calls by operation, struct kind and result.",
		},
		[]string{"op", "struct", "result"},
	)
	codecBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wirecodec",
			Subsystem: "codec",
			Name:      "message_bytes",
			Help:      "Encoded size of successfully processed messages.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 10),
		},
		[]string{"op", "struct"},
	)
	codecDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wirecodec",
			Subsystem: "codec",
			Name:      "duration_seconds",
			Help:      "Codec call duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
		[]string{"op", "struct"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(codecOps, codecBytes, codecDuration)
	})
}

// RecordCodec counts one codec call. result is protocol.Kind(err), so each
// failure class gets its own series.
func RecordCodec(op, structName string, size int, duration time.Duration, err error) {
	RegisterMetrics()
	codecOps.WithLabelValues(op, structName, protocol.Kind(err)).Inc()
	codecDuration.WithLabelValues(op, structName).Observe(duration.Seconds())
	if err == nil {
		codecBytes.WithLabelValues(op, structName).Observe(float64(size))
	}
}

func RecordMarshal(structName string, size int, duration time.Duration, err error) {
	RecordCodec(OpMarshal, structName, size, duration, err)
}

func RecordUnmarshal(structName string, size int, duration time.Duration, err error) {
	RecordCodec(OpUnmarshal, structName, size, duration, err)
}

// Sample is one counter series from the default registry.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// CounterSamples gathers every wirecodec counter series, sorted by name.
func CounterSamples() ([]Sample, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, err
	}
	var out []Sample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			labels := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			out = append(out, Sample{Name: mf.GetName(), Labels: labels, Value: m.GetCounter().GetValue()})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
