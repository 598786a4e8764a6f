package observability

import (
	"strconv"
	"sync"

	"github.com/danmuck/tsnmanifest/pkg/manifest"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tsnmanifest"

var (
	registerOnce sync.Once

	framesEncoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frame",
			Name:      "encoded_total",
			Help:      "Stream frames written with a manifest-conformant payload.",
		},
		[]string{"stream"},
	)
	framesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frame",
			Name:      "rejected_total",
			Help:      "Stream frames rejected against the manifest.",
		},
		[]string{"stream", "reason"},
	)
)

var streamLabels = []string{"stream", "stream_id", "class", "kind"}

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesEncoded, framesRejected)
	})
}

func RecordFrameEncoded(stream string) {
	RegisterMetrics()
	framesEncoded.WithLabelValues(stream).Inc()
}

func RecordFrameRejected(stream, reason string) {
	RegisterMetrics()
	framesRejected.WithLabelValues(stream, reason).Inc()
}

// ManifestMetrics exports the static shape of a manifest as gauges.
type ManifestMetrics struct {
	PublishHz      *prometheus.GaugeVec
	PayloadBytes   *prometheus.GaugeVec
	BandwidthBytes *prometheus.GaugeVec
}

// RegisterManifest registers per-stream gauges for table on reg and sets them.
// On error nothing stays registered.
func RegisterManifest(reg prometheus.Registerer, table *manifest.Table) (*ManifestMetrics, error) {
	m := &ManifestMetrics{
		PublishHz: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "publish_hz",
			Help:      "Declared publish frequency of a stream.",
		}, streamLabels),
		PayloadBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "payload_bytes",
			Help:      "Fixed encoded payload size of a stream.",
		}, streamLabels),
		BandwidthBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "bandwidth_bytes",
			Help:      "Payload bytes per second of a stream, excluding framing.",
		}, streamLabels),
	}
	collectors := []prometheus.Collector{m.PublishHz, m.PayloadBytes, m.BandwidthBytes}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, done := range collectors[:i] {
				reg.Unregister(done)
			}
			return nil, err
		}
	}
	for d := range table.All() {
		labels := prometheus.Labels{
			"stream":    d.Name,
			"stream_id": strconv.FormatUint(d.StreamID, 10),
			"class":     d.Class.String(),
			"kind":      d.Kind.String(),
		}
		m.PublishHz.With(labels).Set(float64(d.Freq))
		m.PayloadBytes.With(labels).Set(float64(d.PayloadSize))
		m.BandwidthBytes.With(labels).Set(float64(d.Bandwidth()))
	}
	return m, nil
}
