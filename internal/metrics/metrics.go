// metrics - Prometheus-метрики подсистемы сессий.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AuthFailuresTotal считает отказы аутентификации/авторизации по виду ошибки.
	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Authentication and authorization failures",
		},
		[]string{"kind"},
	)

	// SessionsStartedTotal - успешные логины и регистрации.
	SessionsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_sessions_started_total",
			Help: "Login sessions started",
		},
	)

	// RotationsTotal - ротации refresh-токена по результату (ok, revoked, expired, session_expired, error).
	RotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_refresh_rotations_total",
			Help: "Refresh token rotations",
		},
		[]string{"result"},
	)

	// RevokedTotal - удалённые при logout/forced sign-out записи.
	RevokedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_refresh_revoked_total",
			Help: "Refresh token records removed by sign-out",
		},
		[]string{"scope"},
	)

	// ReaperDeletedTotal - записи, удалённые фоновой очисткой.
	ReaperDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_reaper_deleted_total",
			Help: "Expired refresh token records removed by the reaper",
		},
	)

	// RequestsTotal - HTTP-запросы по методу, маршруту и классу статуса.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_http_requests_total",
			Help: "HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration - длительность HTTP-запросов в секундах.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auth_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		AuthFailuresTotal,
		SessionsStartedTotal,
		RotationsTotal,
		RevokedTotal,
		ReaperDeletedTotal,
		RequestsTotal,
		RequestDuration,
	)
}
