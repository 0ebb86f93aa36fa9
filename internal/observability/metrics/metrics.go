package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters/histograms for the booking relay.
type Metrics struct {
	inboundTotal    *prometheus.CounterVec
	outboundTotal   *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	reconcileTotal  *prometheus.CounterVec
	dispatchedTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citabot",
			Subsystem: "messaging",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound WhatsApp webhooks",
		}, []string{"status"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citabot",
			Subsystem: "messaging",
			Name:      "outbound_total",
			Help:      "Total outbound Twilio sends",
		}, []string{"status"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "citabot",
			Subsystem: "gateway",
			Name:      "completion_latency_seconds",
			Help:      "Latency of language-model completions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		reconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citabot",
			Subsystem: "booking",
			Name:      "reconcile_total",
			Help:      "Reconciliations by draft state and status",
		}, []string{"state", "status"}),
		dispatchedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citabot",
			Subsystem: "conversation",
			Name:      "dispatched_total",
			Help:      "Background conversation tasks by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.gatewayLatency, m.reconcileTotal, m.dispatchedTotal)
	return m
}

func (m *Metrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveGatewayLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.gatewayLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) ObserveReconcile(state, status string) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(state, status).Inc()
}

func (m *Metrics) ObserveDispatched(status string) {
	if m == nil {
		return
	}
	m.dispatchedTotal.WithLabelValues(status).Inc()
}
