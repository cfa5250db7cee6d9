package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/go-session-auth/internal/http/errors"
	"github.com/pribylovaa/go-session-auth/internal/identity"
	"github.com/pribylovaa/go-session-auth/internal/metrics"
	"github.com/pribylovaa/go-session-auth/internal/models"
	logctx "github.com/pribylovaa/go-session-auth/internal/pkg/log"
	"github.com/pribylovaa/go-session-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-session-auth/internal/service"
	"github.com/pribylovaa/go-session-auth/internal/token"
)

// AccessValidator проверяет access-токен (service.AccessManager).
type AccessValidator interface {
	Validate(raw string) (*token.AccessClaims, error)
}

// RefreshParser разбирает refresh-токен без обращения к хранилищу (service.RefreshManager).
type RefreshParser interface {
	Parse(presented string) (*token.RefreshClaims, error)
}

// IdentityLookup - справочник пользователей (service.UserDirectory).
type IdentityLookup interface {
	Lookup(ctx context.Context, username string) (models.Identity, error)
}

// DefaultAllowList - пути, доступные без access-токена.
// /auth/refresh и /auth/logout охраняет RefreshGate.
var DefaultAllowList = []string{
	"/auth/login",
	"/auth/register",
	"/auth/password-recovery",
	"/auth/refresh",
	"/auth/logout",
	"/livez",
	"/healthz",
	"/metrics",
}

// DefaultAdminPatterns - маршруты только для ADMIN.
var DefaultAdminPatterns = []string{"/admin/*"}

type refreshTokenKey struct{}

// ContextWithRefreshToken кладёт принятый refresh-токен в контекст.
func ContextWithRefreshToken(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, refreshTokenKey{}, raw)
}

// PresentedRefreshToken возвращает refresh-токен, принятый RefreshGate, или "".
func PresentedRefreshToken(ctx context.Context) string {
	v, _ := ctx.Value(refreshTokenKey{}).(string)
	return v
}

// Authenticate проверяет cookie access-token для всех путей вне allow-list и
// публикует субъекта через identity.Into.
//
// Истёкший токен удаляет только access-cookie: клиент ещё может обновить
// пару через /auth/refresh. Подделанный или чужого типа токен удаляет обе.
func Authenticate(access AccessValidator, cookies CookieOptions, allow ...string) Middleware {
	if len(allow) == 0 {
		allow = DefaultAllowList
	}
	allowed := make(map[string]struct{}, len(allow))
	for _, p := range allow {
		allowed[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			raw := cookieValue(r, AccessCookie)
			if raw == "" {
				deny(w, r, service.ErrMissingCookie)
				return
			}

			claims, err := access.Validate(raw)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrExpired):
					clearAccessCookie(w, cookies)
				default:
					ClearSessionCookies(w, cookies)
				}
				deny(w, r, err)
				return
			}

			id := claims.Identity()
			ctx := identity.Into(r.Context(), id)
			ctx = logctx.With(ctx, slog.String("username", redact.Username(id.Username)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RefreshGate охраняет /auth/refresh и /auth/logout: разбирает cookie
// refresh-token, загружает актуального субъекта из справочника и кладёт
// в контекст токен и субъекта.
//
// Истёкший, но подписанный токен пропускается дальше: Rotate удалит запись
// и отличит session_expired, а logout закроет сессию.
// Любой отказ аутентификации удаляет обе cookie. Сбой справочника - 500.
func RefreshGate(refresh RefreshParser, dir IdentityLookup, cookies CookieOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := cookieValue(r, RefreshCookie)
			if raw == "" {
				ClearSessionCookies(w, cookies)
				deny(w, r, service.ErrMissingCookie)
				return
			}

			claims, err := refresh.Parse(raw)
			if claims == nil {
				ClearSessionCookies(w, cookies)
				deny(w, r, err)
				return
			}

			id, err := dir.Lookup(r.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, service.ErrUserNotFound) {
					ClearSessionCookies(w, cookies)
					deny(w, r, service.ErrRevoked)
					return
				}

				logctx.From(r.Context()).Error("refresh_gate_directory_failed",
					slog.String("username", redact.Username(claims.Subject)),
					slog.String("err", err.Error()),
				)
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := ContextWithRefreshToken(r.Context(), raw)
			ctx = identity.Into(ctx, id)
			ctx = logctx.With(ctx, slog.String("username", redact.Username(id.Username)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize пропускает на маршруты из patterns только субъектов с ролью ADMIN.
// Шаблон "/admin/*" покрывает "/admin" и всё под ним; без "*" - точное совпадение.
// Должен стоять после Authenticate.
func Authorize(patterns ...string) Middleware {
	if len(patterns) == 0 {
		patterns = DefaultAdminPatterns
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !matchAny(patterns, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			id, ok := identity.From(r.Context())
			if !ok {
				deny(w, r, service.ErrNotAuthenticated)
				return
			}

			if !id.HasRole(models.RoleAdmin) {
				deny(w, r, service.ErrInsufficientPermissions)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if matchPattern(p, path) {
			return true
		}
	}

	return false
}

func matchPattern(pattern, path string) bool {
	prefix, glob := strings.CutSuffix(pattern, "*")
	if !glob {
		return path == pattern
	}

	return strings.HasPrefix(path, prefix) || path == strings.TrimSuffix(prefix, "/")
}

// deny пишет 401 с кодом вида ошибки и считает отказ в метриках.
func deny(w http.ResponseWriter, r *http.Request, err error) {
	_, resp := apierrors.ToHTTP(err)
	metrics.AuthFailuresTotal.WithLabelValues(resp.Error.Code).Inc()

	logctx.From(r.Context()).Debug("auth_denied",
		slog.String("path", r.URL.Path),
		slog.String("kind", resp.Error.Code),
	)

	apierrors.WriteError(w, r, err)
}
