package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/go-session-auth/internal/http/middleware"
	"github.com/pribylovaa/go-session-auth/internal/models"
)

// AuthService - операции сервисного слоя, нужные хендлерам (service.Service).
type AuthService interface {
	Login(ctx context.Context, username, password string) (*models.TokenPair, error)
	Register(ctx context.Context, username, password string) (*models.TokenPair, error)
	RefreshPair(ctx context.Context, presented string, id models.Identity) (*models.TokenPair, error)
	Logout(ctx context.Context, presented string) error
	LogoutAll(ctx context.Context, username string) (int64, error)
	ForceSignOut(ctx context.Context, username string) (int64, error)
}

// Handlers агрегирует зависимости хендлеров.
type Handlers struct {
	svc     AuthService
	cookies middleware.CookieOptions
}

func New(svc AuthService, cookies middleware.CookieOptions) *Handlers {
	return &Handlers{svc: svc, cookies: cookies}
}

// writeJSON - единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict - строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
