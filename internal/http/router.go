package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-session-auth/internal/http/handlers"
	"github.com/pribylovaa/go-session-auth/internal/http/middleware"
	"github.com/pribylovaa/go-session-auth/internal/service"
)

// Options - параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
	Cookies middleware.CookieOptions
	// AdminPatterns - маршруты только для ADMIN; пусто - middleware.DefaultAdminPatterns.
	AdminPatterns []string
	// Ready - готовность для /healthz; nil - всегда готов.
	Ready func() bool
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний). Authorize строго после Authenticate.
	root.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
		middleware.Timeout(opts.Timeout),
		middleware.Authenticate(svc.Access(), opts.Cookies),
		middleware.Authorize(opts.AdminPatterns...),
	)

	h := handlers.New(svc, opts.Cookies)
	registerProbes(root, opts.Ready)
	registerRoutes(root, h, middleware.RefreshGate(svc.Refresh(), svc.Directory(), opts.Cookies))

	return root
}

// registerRoutes - единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, refreshGate middleware.Middleware) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/register", h.Register)

	r.Group(func(g chi.Router) {
		g.Use(refreshGate)
		g.Post("/auth/refresh", h.Refresh)
		g.Post("/auth/logout", h.Logout)
	})

	r.Post("/auth/logout-all", h.LogoutAll)
	r.Get("/me", h.Me)

	r.Delete("/admin/users/{username}/sessions", h.ForceSignOut)
}

func registerProbes(r chi.Router, ready func() bool) {
	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if ready == nil || ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	r.Handle("/metrics", promhttp.Handler())
}
