// Package metrics - Prometheus коллекторы сервиса.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// стадии для AuditMessages
const (
	StagePublished     = "published"
	StagePublishFailed = "publish_failed"
	StageStored        = "stored"
	StageRejected      = "rejected"
)

type Metrics struct {
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	AuditMessages *prometheus.CounterVec
}

// New регистрирует коллекторы в переданном registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todo",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "todo",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		AuditMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todo",
			Name:      "audit_messages_total",
			Help:      "Audit messages by stage (published, publish_failed, stored, rejected).",
		}, []string{"stage"}),
	}
	reg.MustRegister(m.HTTPRequests, m.HTTPDuration, m.AuditMessages)
	return m
}

func (m *Metrics) AuditStage(stage string) {
	if m == nil {
		return
	}
	m.AuditMessages.WithLabelValues(stage).Inc()
}
