package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
)

var (
	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Sign-in attempts by flow and outcome.",
	}, []string{"flow", "result"})

	provisioningItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provisioning_items_total",
		Help: "Bulk provisioning items by kind and outcome.",
	}, []string{"kind", "result"})
)

// recordAuth counts an auth flow outcome. Failures are labelled with the
// error kind, never with anything user supplied.
func recordAuth(flow string, err error) {
	result := "success"
	if err != nil {
		result = serrors.KindOf(err).String()
	}
	authAttempts.WithLabelValues(flow, result).Inc()
}

func recordItem(kind ItemKind, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	provisioningItems.WithLabelValues(string(kind), result).Inc()
}
