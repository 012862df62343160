package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics del flujo verify+reconcile. Viven en un package propio
// para evitar ciclos de import entre el verifier y las capas HTTP.

var (
	VerifyRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "firebridge_verify_requests_total",
		Help: "Requests al endpoint de verificación, por resultado",
	}, []string{"outcome"}) // ok | bad_request | unauthorized | error

	VerifyLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "firebridge_verify_latency_ms",
		Help:    "Latencia end-to-end de verify+reconcile en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	ReconcileOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "firebridge_reconcile_total",
		Help: "Reconciliaciones por resultado (created/updated)",
	}, []string{"outcome"})

	JWKSFetches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "firebridge_jwks_fetches_total",
		Help: "Fetches del JWKS de Google (cache miss)",
	})
)

// Register registers the metrics on the given registry (or default if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{VerifyRequests, VerifyLatency, ReconcileOutcomes, JWKSFetches} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
