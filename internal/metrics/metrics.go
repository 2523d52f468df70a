// Package metrics provides Prometheus collectors for prompt-vault.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alanyang/prompt-vault/internal/domain/diff"
	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing, which keeps tests free of registry setup.
type Metrics struct {
	VersionsCreated *prometheus.CounterVec
	Restores        prometheus.Counter
	DiffRequests    prometheus.Counter
	DiffLines       *prometheus.CounterVec
	PromptUses      prometheus.Counter
	Exports         *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		VersionsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptvault_versions_created_total",
				Help: "Prompt versions created, by change type (initial for new prompts)",
			},
			[]string{"change_type"},
		),
		Restores: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promptvault_restores_total",
			Help: "Restore-to-version operations",
		}),
		DiffRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promptvault_diff_requests_total",
			Help: "Version comparisons computed",
		}),
		DiffLines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptvault_diff_lines_total",
				Help: "Diff lines produced, by line type",
			},
			[]string{"type"},
		),
		PromptUses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "promptvault_prompt_uses_total",
			Help: "Times a prompt was copied or inserted",
		}),
		Exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptvault_exports_total",
				Help: "Exports produced, by format",
			},
			[]string{"format"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptvault_http_requests_total",
				Help: "HTTP requests, by method and status",
			},
			[]string{"method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "promptvault_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	reg.MustRegister(
		m.VersionsCreated,
		m.Restores,
		m.DiffRequests,
		m.DiffLines,
		m.PromptUses,
		m.Exports,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// initialLabel counts the v1.0.0 snapshot a new prompt starts with.
const initialLabel = "initial"

// VersionCreated records a snapshot appended to an existing prompt.
func (m *Metrics) VersionCreated(changeType domainprompt.ChangeType) {
	if m == nil {
		return
	}
	m.VersionsCreated.WithLabelValues(string(changeType)).Inc()
}

// PromptCreated records the initial snapshot of a new prompt.
func (m *Metrics) PromptCreated() {
	if m == nil {
		return
	}
	m.VersionsCreated.WithLabelValues(initialLabel).Inc()
}

func (m *Metrics) Restored() {
	if m == nil {
		return
	}
	m.Restores.Inc()
}

func (m *Metrics) Diffed(stats diff.Stats) {
	if m == nil {
		return
	}
	m.DiffRequests.Inc()
	m.DiffLines.WithLabelValues(string(diff.Added)).Add(float64(stats.Added))
	m.DiffLines.WithLabelValues(string(diff.Removed)).Add(float64(stats.Removed))
	m.DiffLines.WithLabelValues(string(diff.Unchanged)).Add(float64(stats.Unchanged))
}

func (m *Metrics) Used() {
	if m == nil {
		return
	}
	m.PromptUses.Inc()
}

func (m *Metrics) Exported(format string) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(format).Inc()
}
