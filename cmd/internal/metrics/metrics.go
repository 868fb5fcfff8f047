// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SigninTotal counts password-check attempts by outcome:
	// ok, invalid_credentials, throttled, error.
	SigninTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekey_signin_total",
		Help: "Password sign-in attempts by outcome.",
	}, []string{"outcome"})

	// VerifyTotal counts code verification attempts by outcome:
	// ok, not_found, consumed, expired, mismatch, error.
	VerifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekey_verify_total",
		Help: "Login code verification attempts by outcome.",
	}, []string{"outcome"})

	// DeliveryAttemptsTotal counts individual transport attempts.
	DeliveryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekey_delivery_attempts_total",
		Help: "Code delivery attempts by transport and result.",
	}, []string{"transport", "result"})
)

// ObserveDeliveryAttempt records one transport attempt. Matches the
// delivery.AttemptObserver signature.
func ObserveDeliveryAttempt(transport string, err error) {
	result := "ok"
	if err != nil {
		result = "fail"
	}
	DeliveryAttemptsTotal.WithLabelValues(transport, result).Inc()
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
