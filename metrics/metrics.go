// Package metrics exposes prometheus counters and gauges for the
// protocol-level events an operator would want visibility into: matched
// endpoints, acknowledgment traffic, discovery churn, and QoS
// incompatibilities (§8 scenario 4), grounded on the teacher's own
// github.com/prometheus/client_golang dependency.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every collector this module registers. Callers embed
// one Metrics per process (or per domain participant, with a dedicated
// registry) and pass its fields to the components that produce events.
type Metrics struct {
	MatchedEndpoints           prometheus.Gauge
	AckNacksSent               prometheus.Counter
	AckNacksReceived           prometheus.Counter
	HeartbeatsSent             prometheus.Counter
	DiscoveryParticipantsFound prometheus.Counter
	DiscoveryParticipantsLost  prometheus.Counter
	QosIncompatibilities       *prometheus.CounterVec
	SamplesDelivered           prometheus.Counter
	SamplesLost                prometheus.Counter
}

// New creates collectors and registers them against reg. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer for a real process.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MatchedEndpoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rtps",
			Name:      "matched_endpoints",
			Help:      "Number of currently matched reader/writer pairs.",
		}),
		AckNacksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rtps",
			Name:      "acknacks_sent_total",
			Help:      "Total ACKNACK submessages sent by local readers.",
		}),
		AckNacksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rtps",
			Name:      "acknacks_received_total",
			Help:      "Total ACKNACK submessages received by local writers.",
		}),
		HeartbeatsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rtps",
			Name:      "heartbeats_sent_total",
			Help:      "Total HEARTBEAT submessages sent by local writers.",
		}),
		DiscoveryParticipantsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rtps",
			Name:      "discovery_participants_found_total",
			Help:      "Total remote participants discovered via SPDP.",
		}),
		DiscoveryParticipantsLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rtps",
			Name:      "discovery_participants_lost_total",
			Help:      "Total remote participants whose SPDP lease expired.",
		}),
		QosIncompatibilities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rtps",
			Name:      "qos_incompatibilities_total",
			Help:      "Total reader/writer match attempts rejected by QoS, by first incompatible policy.",
		}, []string{"policy"}),
		SamplesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rtps",
			Name:      "samples_delivered_total",
			Help:      "Total samples delivered into a reader's HistoryCache.",
		}),
		SamplesLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rtps",
			Name:      "samples_lost_total",
			Help:      "Total samples a reader proxy marked Lost before delivery.",
		}),
	}
	reg.MustRegister(
		m.MatchedEndpoints,
		m.AckNacksSent,
		m.AckNacksReceived,
		m.HeartbeatsSent,
		m.DiscoveryParticipantsFound,
		m.DiscoveryParticipantsLost,
		m.QosIncompatibilities,
		m.SamplesDelivered,
		m.SamplesLost,
	)
	return m
}
