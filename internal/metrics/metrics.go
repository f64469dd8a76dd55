package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login results.
const (
	LoginSuccess     = "success"
	LoginInvalid     = "invalid_credentials"
	LoginDeactivated = "deactivated"
	LoginError       = "error"
)

var (
	loginTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolhub",
		Subsystem: "auth",
		Name:      "login_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolhub",
		Subsystem: "auth",
		Name:      "rejections_total",
		Help:      "Requests rejected by the auth middleware, by reason code.",
	}, []string{"reason"})

	tokensIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "schoolhub",
		Subsystem: "auth",
		Name:      "tokens_issued_total",
		Help:      "Access and refresh token pairs issued.",
	})
)

// ObserveLogin counts a login attempt.
func ObserveLogin(result string) {
	loginTotal.WithLabelValues(result).Inc()
}

// ObserveRejection counts a request rejected with the given error code.
func ObserveRejection(reason string) {
	rejectionsTotal.WithLabelValues(reason).Inc()
}

// ObserveTokensIssued counts an issued token pair.
func ObserveTokensIssued() {
	tokensIssuedTotal.Inc()
}
