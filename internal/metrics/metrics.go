// Package metrics exposes prometheus instruments for extraction and export.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slidex_extractions_total",
		Help: "Extraction requests by mode and outcome",
	}, []string{"mode", "status"})

	ExtractorInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slidex_extractor_invocations_total",
		Help: "External extractor subprocess runs by outcome",
	}, []string{"status"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slidex_frames_extracted_total",
		Help: "Frames present in output directories after successful extractions",
	})

	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slidex_exports_total",
		Help: "Export jobs by format and outcome",
	}, []string{"format", "status"})

	FramesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slidex_frames_deleted_total",
		Help: "Frame files removed by post-export cleanup",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "slidex_stage_duration_seconds",
		Help:    "Duration of extraction and export stages",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"stage"})

	JobsQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slidex_jobs_pending",
		Help: "Jobs waiting for the background runner",
	})
)
