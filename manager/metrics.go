package manager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts connection and command activity.
type Metrics struct {
	Connects   *prometheus.CounterVec
	Reconnects *prometheus.CounterVec
	Commands   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Connects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ggtv_connects_total",
				Help: "Connect calls by outcome",
			},
			[]string{"outcome"},
		),
		Reconnects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ggtv_reconnects_total",
				Help: "Reconnects of an existing handle by result",
			},
			[]string{"result"},
		),
		Commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ggtv_commands_total",
				Help: "Commands sent to the TV by kind and result",
			},
			[]string{"kind", "result"},
		),
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
