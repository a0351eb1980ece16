package notify

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks notification delivery.
type Metrics struct {
	Delivered    *prometheus.CounterVec
	Failed       *prometheus.CounterVec
	Attempts     *prometheus.CounterVec
	SendDuration *prometheus.HistogramVec
}

// NewMetrics creates the delivery metrics and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Delivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_notifications_delivered_total",
				Help: "Notifications acknowledged by their webhook, by topic",
			},
			[]string{"topic"},
		),
		Failed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_notifications_failed_total",
				Help: "Delivery rounds that ended without success, by topic and outcome",
			},
			[]string{"topic", "outcome"}, // outcome: retry, dead
		),
		Attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_notification_attempts_total",
				Help: "Individual webhook requests, by topic",
			},
			[]string{"topic"},
		),
		SendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "report_notification_send_duration_seconds",
				Help:    "Latency of individual webhook requests, by topic",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"topic"},
		),
	}

	for _, c := range []prometheus.Collector{m.Delivered, m.Failed, m.Attempts, m.SendDuration} {
		if err := registerer.Register(c); err != nil {
			return nil, fmt.Errorf("register notification metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) observeAttempt(topic Topic, seconds float64) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(string(topic)).Inc()
	m.SendDuration.WithLabelValues(string(topic)).Observe(seconds)
}

func (m *Metrics) delivered(topic Topic) {
	if m == nil {
		return
	}
	m.Delivered.WithLabelValues(string(topic)).Inc()
}

func (m *Metrics) failed(topic Topic, dead bool) {
	if m == nil {
		return
	}
	outcome := "retry"
	if dead {
		outcome = "dead"
	}
	m.Failed.WithLabelValues(string(topic), outcome).Inc()
}
