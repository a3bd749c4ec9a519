package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds all application metrics.
type Metrics struct {
	logger *zap.Logger

	narrationRequests    *prometheus.CounterVec
	cacheLookups         *prometheus.CounterVec
	rateLimitRejections  prometheus.Counter
	synthesisRequests    *prometheus.CounterVec
	synthesisDuration    prometheus.Histogram
	synthesizedAudioSize prometheus.Histogram
}

// New creates and registers all metrics.
func New(logger *zap.Logger) *Metrics {
	m := &Metrics{
		logger: logger,

		narrationRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "narration_requests_total",
				Help: "Narration requests by response status code",
			},
			[]string{"status"},
		),

		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voice_cache_lookups_total",
				Help: "Voice cache lookups by result",
			},
			[]string{"result"}, // hit, miss
		),

		rateLimitRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_limit_rejections_total",
				Help: "Requests rejected by the per-subject rate limit",
			},
		),

		synthesisRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tts_requests_total",
				Help: "TTS provider calls by outcome",
			},
			[]string{"status"}, // success, failed
		),

		synthesisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tts_request_duration_seconds",
				Help:    "TTS provider call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		synthesizedAudioSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tts_audio_bytes",
				Help:    "Size of synthesized audio in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
			},
		),
	}

	prometheus.MustRegister(
		m.narrationRequests,
		m.cacheLookups,
		m.rateLimitRejections,
		m.synthesisRequests,
		m.synthesisDuration,
		m.synthesizedAudioSize,
	)

	return m
}

// RecordRequest counts one narration request by response status.
func (m *Metrics) RecordRequest(status string) {
	m.narrationRequests.WithLabelValues(status).Inc()
}

// RecordCacheLookup counts one cache lookup ("hit" or "miss").
func (m *Metrics) RecordCacheLookup(result string) {
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordRateLimited counts one rejected request.
func (m *Metrics) RecordRateLimited() {
	m.rateLimitRejections.Inc()
}

// RecordSynthesis counts one provider call and its latency; on success the
// audio size is observed as well.
func (m *Metrics) RecordSynthesis(success bool, seconds float64, bytes int) {
	status := "success"
	if !success {
		status = "failed"
	}
	m.synthesisRequests.WithLabelValues(status).Inc()
	m.synthesisDuration.Observe(seconds)
	if success {
		m.synthesizedAudioSize.Observe(float64(bytes))
	}
}

// Handler returns the HTTP handler for Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
