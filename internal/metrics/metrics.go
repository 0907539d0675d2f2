package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "classlog_auth_bridge"

type Metrics struct {
	registry      *prometheus.Registry
	Verifications *prometheus.CounterVec
	TokensIssued  *prometheus.CounterVec
	Revocations   prometheus.Counter
	RevokedTokens prometheus.Counter
}

// New registers the bridge collectors on a fresh registry. withRuntime adds
// the Go and process collectors, which only the real server wants.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Session bridge verifications by outcome.",
		}, []string{"outcome", "origin_category"}),
		TokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Session credentials minted, by role.",
		}, []string{"role"}),
		Revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revocations_total",
			Help:      "Revoke-all requests served.",
		}),
		RevokedTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revoked_tokens_total",
			Help:      "Ledger rows flipped inactive.",
		}),
	}
	reg.MustRegister(m.Verifications, m.TokensIssued, m.Revocations, m.RevokedTokens)
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
