package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/b0ase/path402/apps/oreminer/internal/mining"
	"github.com/b0ase/path402/apps/oreminer/internal/toolbar"
)

const namespace = "oreminer"

// Metrics holds the prometheus collectors for the toolbar and poller.
type Metrics struct {
	registry *prometheus.Registry

	rewardRate        prometheus.Gauge
	claimableRewards  prometheus.Gauge
	circulatingSupply prometheus.Gauge
	sessionTimer      prometheus.Gauge
	toolbarState      *prometheus.GaugeVec
	fetchErrors       *prometheus.CounterVec
	fetches           *prometheus.CounterVec
}

// New registers every collector on a fresh registry, alongside the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		rewardRate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "reward_rate",
			Help: "Treasury reward rate in whole tokens.",
		}),
		claimableRewards: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "claimable_rewards",
			Help: "Claimable rewards on the proof account in whole tokens.",
		}),
		circulatingSupply: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "circulating_supply",
			Help: "Total claimed rewards in whole tokens.",
		}),
		sessionTimer: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "session_timer_seconds",
			Help: "Seconds since the proof hash last changed.",
		}),
		toolbarState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "toolbar_state",
			Help: "1 for the current toolbar state, 0 otherwise.",
		}, []string{"state"}),
		fetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "fetch_errors_total",
			Help: "Failed chain fetches by source.",
		}, []string{"source"}),
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "fetches_total",
			Help: "Chain fetches by source.",
		}, []string{"source"}),
	}
}

// ObserveFetch counts a fetch and, when err is set, a fetch error.
// Its signature matches mining.FetchHook.
func (m *Metrics) ObserveFetch(source string, err error) {
	m.fetches.WithLabelValues(source).Inc()
	if err != nil {
		m.fetchErrors.WithLabelValues(source).Inc()
	}
}

// ObserveMetrics sets the gauges from a derived metrics value.
func (m *Metrics) ObserveMetrics(v mining.Metrics) {
	m.rewardRate.Set(v.RewardRate)
	m.claimableRewards.Set(v.ClaimableRewards)
	m.circulatingSupply.Set(v.CirculatingSupply)
	m.sessionTimer.Set(float64(v.SessionTimer))
}

// ObserveState marks state as the current toolbar state.
func (m *Metrics) ObserveState(state toolbar.State) {
	for _, s := range toolbar.AllStates() {
		v := 0.0
		if s == state {
			v = 1
		}
		m.toolbarState.WithLabelValues(s.String()).Set(v)
	}
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
