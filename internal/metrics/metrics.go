// Package metrics provides Prometheus metrics for the render pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts finished jobs by result (finished/error/cancelled).
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiogram_jobs_total",
		Help: "Total number of render jobs that left the scheduler, by result.",
	}, []string{"result"})

	JobsQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audiogram_jobs_queued",
		Help: "Jobs waiting in the scheduler table.",
	})

	JobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audiogram_jobs_running",
		Help: "Jobs currently rendering.",
	})

	FramesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiogram_frames_rendered_total",
		Help: "Total number of frames handed to the encoder.",
	})

	RenderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audiogram_render_duration_seconds",
		Help:    "Wall time of frame synthesis per job.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	DecodeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "audiogram_decode_duration_seconds",
		Help:    "Wall time of audio decoding per job.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	// HookCalls counts outbound notifications by hook and outcome.
	HookCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiogram_hook_calls_total",
		Help: "Outbound hook calls, by hook and outcome.",
	}, []string{"hook", "outcome"})
)

func RecordJob(result string) {
	JobsTotal.WithLabelValues(result).Inc()
}

func RecordHook(hook string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	HookCalls.WithLabelValues(hook, outcome).Inc()
}
