package restmachinery

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "authkeeper"

const (
	outcomeOK          = "ok"
	outcomeNetworkErr  = "network_error"
	outcomeAuthExpired = "auth_expired"
	outcomeMalformed   = "malformed"
	outcomeSucceeded   = "succeeded"
	outcomeFailed      = "failed"
)

type metrics struct {
	// requests counts logical requests by how they finished. A request that was
	// replayed after a refresh is counted once.
	requests *prometheus.CounterVec
	// refreshes counts refresh network calls by outcome.
	refreshes *prometheus.CounterVec
	// replays counts requests replayed with a refreshed access token.
	replays prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Total API requests by outcome",
			},
			[]string{"outcome"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "refreshes_total",
				Help:      "Total access token refresh calls by outcome",
			},
			[]string{"outcome"},
		),
		replays: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "replays_total",
				Help:      "Total API requests replayed after an access token refresh",
			},
		),
	}
	if registerer == nil {
		return m, nil
	}
	for _, collector := range []prometheus.Collector{
		m.requests,
		m.refreshes,
		m.replays,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, errors.Wrap(err, "error registering metrics")
		}
	}
	return m, nil
}
