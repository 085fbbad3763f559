package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the server's operational counters.
type Metrics struct {
	ActionsTotal     *prometheus.CounterVec
	HandsTotal       *prometheus.CounterVec
	CommandsRejected *prometheus.CounterVec
	Subscribers      prometheus.Gauge
}

// NewMetrics registers the metric set with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holdemd",
			Name:      "actions_total",
			Help:      "Betting actions accepted, by table.",
		}, []string{"table"}),
		HandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holdemd",
			Name:      "hands_total",
			Help:      "Hands completed, by table.",
		}, []string{"table"}),
		CommandsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holdemd",
			Name:      "commands_rejected_total",
			Help:      "Commands rejected, by error kind.",
		}, []string{"kind"}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "holdemd",
			Name:      "subscribers",
			Help:      "Currently connected event stream subscribers.",
		}),
	}
}
