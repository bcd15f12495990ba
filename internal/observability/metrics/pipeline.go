package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type PipelineMetrics struct {
	registry *prometheus.Registry

	jobsTotal        *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	jobsInFlight     prometheus.Gauge
	dispositionTotal *prometheus.CounterVec
	chunksPerJob     *prometheus.HistogramVec
	pollAttempts     *prometheus.HistogramVec
	confidence       *prometheus.HistogramVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nocv",
			Subsystem: "pipeline",
			Name:      "jobs_total",
			Help:      "Total processed validation jobs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nocv",
			Subsystem: "pipeline",
			Name:      "job_duration_seconds",
			Help:      "End to end validation duration in seconds by outcome.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"service", "outcome"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nocv",
			Subsystem: "pipeline",
			Name:      "jobs_in_flight",
			Help:      "Number of validation jobs currently processing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	dispositionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nocv",
			Subsystem: "pipeline",
			Name:      "dispositions_total",
			Help:      "Total completed jobs by final disposition.",
		},
		[]string{"service", "disposition"},
	)
	chunksPerJob := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nocv",
			Subsystem: "pipeline",
			Name:      "chunks_per_job",
			Help:      "Distribution of chunk counts per job.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	pollAttempts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nocv",
			Subsystem: "pipeline",
			Name:      "poll_attempts",
			Help:      "Distribution of poll attempts per chunk.",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 30, 45, 60},
		},
		[]string{"service"},
	)
	confidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nocv",
			Subsystem: "pipeline",
			Name:      "confidence",
			Help:      "Distribution of final weighted confidence per completed job.",
			Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1},
		},
		[]string{"service"},
	)

	registry.MustRegister(jobsTotal, jobDuration, jobsInFlight, dispositionTotal, chunksPerJob, pollAttempts, confidence)

	return &PipelineMetrics{
		registry:         registry,
		jobsTotal:        jobsTotal,
		jobDuration:      jobDuration,
		jobsInFlight:     jobsInFlight,
		dispositionTotal: dispositionTotal,
		chunksPerJob:     chunksPerJob,
		pollAttempts:     pollAttempts,
		confidence:       confidence,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartJob() {
	m.jobsInFlight.Inc()
}

func (m *PipelineMetrics) FinishJob(service string, duration time.Duration, err error) {
	m.jobsInFlight.Dec()

	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}
	m.jobsTotal.WithLabelValues(service, outcome).Inc()
	m.jobDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}

func (m *PipelineMetrics) RecordDisposition(service, disposition string) {
	if disposition == "" {
		disposition = "unknown"
	}
	m.dispositionTotal.WithLabelValues(service, disposition).Inc()
}

func (m *PipelineMetrics) RecordChunks(service string, chunkCount int) {
	if chunkCount <= 0 {
		return
	}
	m.chunksPerJob.WithLabelValues(service).Observe(float64(chunkCount))
}

func (m *PipelineMetrics) RecordPollAttempts(service string, attempts int) {
	if attempts <= 0 {
		return
	}
	m.pollAttempts.WithLabelValues(service).Observe(float64(attempts))
}

func (m *PipelineMetrics) RecordConfidence(service string, confidence float64) {
	m.confidence.WithLabelValues(service).Observe(confidence)
}
