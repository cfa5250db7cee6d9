package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout ограничивает запрос дедлайном d, если у контекста его ещё нет.
// Этот же контекст уходит в хранилище refresh-токенов и справочник
// пользователей, так что дедлайн ограничивает и их вызовы; по истечении
// хендлер отвечает 504 deadline_exceeded. d<=0 отключает мидлвар.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
