package services

import "github.com/prometheus/client_golang/prometheus"

var (
	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_submissions_total",
			Help: "Accepted feedback submissions by category and sentiment.",
		},
		[]string{"category", "sentiment"},
	)

	slaBreached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedback_sla_breached",
			Help: "Open tickets past their SLA target at the last watchdog run.",
		},
	)

	slaAtRisk = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedback_sla_at_risk",
			Help: "Open tickets within the at-risk band at the last watchdog run.",
		},
	)
)

func init() {
	prometheus.MustRegister(submissions, slaBreached, slaAtRisk)
}
