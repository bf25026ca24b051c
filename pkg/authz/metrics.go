package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var decisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "authz",
	Name:      "decisions_total",
	Help:      "Authorization decisions broken down by mode, permission and result.",
}, []string{"mode", "permission", "result"})

func recordDecision(mode Mode, p Permission, allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	decisions.WithLabelValues(string(mode), p.String(), result).Inc()
}
