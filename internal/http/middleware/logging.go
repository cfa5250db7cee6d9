package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-session-auth/internal/metrics"
	logctx "github.com/pribylovaa/go-session-auth/internal/pkg/log"
)

// Logging кладёт request-scoped логгер в контекст, пишет запись "http"
// по завершении запроса и обновляет HTTP-метрики.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := l
			if rid := r.Header.Get(HeaderRequestID); rid != "" {
				reqLogger = reqLogger.With(slog.String("request_id", rid))
			}
			r = r.WithContext(logctx.Into(r.Context(), reqLogger))

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)
			dur := time.Since(start)

			if sw.status == 0 {
				sw.status = http.StatusOK
			}

			route := routePattern(r)
			metrics.RequestsTotal.WithLabelValues(r.Method, route, statusClass(sw.status)).Inc()
			metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(dur.Seconds())

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Duration("dur", dur),
				slog.Int("bytes", sw.count),
			}

			logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelInfo, "http", attrs...)
		})
	}
}

// routePattern - шаблон chi-маршрута; для несматченных запросов "unmatched",
// чтобы не раздувать кардинальность метрик сырыми путями.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}

	return "unmatched"
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}
