// Package metrics provides Prometheus metrics for payload decoding.
package metrics

import (
	"github.com/danmuck/doipscope/internal/doip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Outcome label values.
const (
	OutcomeComplete  = "complete"
	OutcomePartial   = "partial"
	OutcomeUnknown   = "unknown"
	OutcomeMalformed = "malformed"
)

// PayloadTypeNone labels input that failed before a header was parsed.
const PayloadTypeNone = "none"

// DefaultPayloadSizeBuckets spans empty control messages up to large
// diagnostic transfers.
var DefaultPayloadSizeBuckets = []float64{0, 4, 8, 16, 64, 256, 1024, 4096, 65536, 1 << 20}

// DecodeMetrics holds metrics related to payload decoding.
type DecodeMetrics struct {
	// MessagesTotal counts decoded messages.
	// Labels: payload_type, outcome
	MessagesTotal *prometheus.CounterVec

	// FieldsTotal counts emitted fields, absent required fields included.
	// Labels: payload_type
	FieldsTotal *prometheus.CounterVec

	// PayloadBytes tracks declared payload lengths.
	PayloadBytes prometheus.Histogram
}

// NewDecodeMetricsWithRegistry registers decode metrics with reg.
func NewDecodeMetricsWithRegistry(reg prometheus.Registerer) *DecodeMetrics {
	return newDecodeMetrics(promauto.With(reg))
}

func newDecodeMetrics(f promauto.Factory) *DecodeMetrics {
	return &DecodeMetrics{
		MessagesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "doipscope",
				Subsystem: "decode",
				Name:      "messages_total",
				Help:      "Total number of decoded DoIP messages, broken down by payload type and outcome.",
			},
			[]string{"payload_type", "outcome"},
		),
		FieldsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "doipscope",
				Subsystem: "decode",
				Name:      "fields_total",
				Help:      "Total number of decoded payload fields, broken down by payload type.",
			},
			[]string{"payload_type"},
		),
		PayloadBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "doipscope",
				Subsystem: "decode",
				Name:      "payload_bytes",
				Help:      "Declared DoIP payload length in bytes.",
				Buckets:   DefaultPayloadSizeBuckets,
			},
		),
	}
}

// Outcome classifies a decode result.
func Outcome(res doip.Result, err error) string {
	switch {
	case err != nil:
		return OutcomeMalformed
	case !res.Known:
		return OutcomeUnknown
	case res.Partial:
		return OutcomePartial
	default:
		return OutcomeComplete
	}
}

// Observe records one decode call.
func (m *DecodeMetrics) Observe(t doip.PayloadType, declared uint32, res doip.Result, err error) {
	label := t.String()
	m.MessagesTotal.WithLabelValues(label, Outcome(res, err)).Inc()
	m.PayloadBytes.Observe(float64(declared))
	if err == nil && len(res.Fields) > 0 {
		m.FieldsTotal.WithLabelValues(label).Add(float64(len(res.Fields)))
	}
}

// ObserveUnframed records input rejected before any header was read. No
// payload size is observed.
func (m *DecodeMetrics) ObserveUnframed(err error) {
	m.MessagesTotal.WithLabelValues(PayloadTypeNone, Outcome(doip.Result{}, err)).Inc()
}

// OutcomeCounts sums MessagesTotal per outcome across payload types.
func (m *DecodeMetrics) OutcomeCounts() (map[string]uint64, error) {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		m.MessagesTotal.Collect(ch)
		close(ch)
	}()
	counts := make(map[string]uint64)
	var firstErr error
	for metric := range ch {
		var pb dto.Metric
		if err := metric.Write(&pb); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, lp := range pb.GetLabel() {
			if lp.GetName() == "outcome" {
				counts[lp.GetValue()] += uint64(pb.GetCounter().GetValue())
			}
		}
	}
	return counts, firstErr
}
