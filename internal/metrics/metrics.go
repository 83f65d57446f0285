package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wirebridge"

// Direction labels for bridged messages.
const (
	DirectionInbound  = "irc_to_ws"
	DirectionOutbound = "ws_to_irc"
)

// Drop reasons.
const (
	DropNoMapping      = "no_mapping"
	DropRateLimited    = "rate_limited"
	DropUnauthorized   = "unauthorized"
	DropUnsupported    = "unsupported_network"
	DropDelivery       = "delivery_failed"
	DropSessionMissing = "session_missing"
	DropSlowConsumer   = "slow_consumer"
)

// Metrics holds the bridge's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Bridged      *prometheus.CounterVec
	Dropped      *prometheus.CounterVec
	AuthAttempts *prometheus.CounterVec
	Registers    *prometheus.CounterVec
	Sessions     prometheus.Gauge
	Backlog      prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Bridged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_bridged_total",
			Help:      "Messages accepted into the backlog, by direction.",
		}, []string{"direction"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Messages or events dropped before delivery, by reason.",
		}, []string{"reason"}),
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Login attempts, by result.",
		}, []string{"result"}),
		Registers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "register_attempts_total",
			Help:      "Account registration attempts, by result.",
		}, []string{"result"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Live WebSocket sessions.",
		}),
		Backlog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backlog_messages",
			Help:      "Messages currently retained in the backlog.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Bridged, m.Dropped, m.AuthAttempts, m.Registers, m.Sessions, m.Backlog)
	}
	return m
}

// MessageBridged counts a message accepted into the backlog.
func (m *Metrics) MessageBridged(direction string, backlogLen int) {
	if m == nil {
		return
	}
	m.Bridged.WithLabelValues(direction).Inc()
	m.Backlog.Set(float64(backlogLen))
}

// MessageDropped counts a dropped message or event.
func (m *Metrics) MessageDropped(reason string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(reason).Inc()
}

// AuthAttempt counts a login attempt.
func (m *Metrics) AuthAttempt(ok bool) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(result(ok)).Inc()
}

// RegisterAttempt counts a registration attempt.
func (m *Metrics) RegisterAttempt(ok bool) {
	if m == nil {
		return
	}
	m.Registers.WithLabelValues(result(ok)).Inc()
}

// SessionsChanged records the live session count.
func (m *Metrics) SessionsChanged(n int) {
	if m == nil {
		return
	}
	m.Sessions.Set(float64(n))
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "rejected"
}
