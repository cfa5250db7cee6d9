// errors стандартизирует ответы об ошибках HTTP-слоя auth-service.
// На вход принимается ошибка сервисного слоя, на выход даётся:
//   - корректный HTTP-статус;
//   - короткий стабильный код для машиночитаемой обработки на фронте;
//   - краткое безопасное message без утечки деталей.
//
// Все отказы аутентификации/авторизации отдаются как 401 (403 не используется),
// каждый со своим кодом. Ошибки хранилища и справочника пользователей - 500,
// они никогда не маскируются под 401.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-session-auth/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError - единый формат для фронта.
// Code - короткий стабильный код для машиночитаемой обработки на FE.
// Message - безопасное человекочитаемое описание.
// RequestID - прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse - корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type mapping struct {
	target  error
	status  int
	code    string
	message string
}

// table просматривается сверху вниз, побеждает первое совпадение errors.Is.
var table = []mapping{
	{service.ErrMissingCookie, http.StatusUnauthorized, "missing_cookie", "authentication cookie is missing"},
	{service.ErrSessionExpired, http.StatusUnauthorized, "session_expired", "session expired, please log in again"},
	{service.ErrExpired, http.StatusUnauthorized, "token_expired", "token expired"},
	{service.ErrInvalidSignatureOrFormat, http.StatusUnauthorized, "invalid_token", "invalid token"},
	{service.ErrWrongTokenType, http.StatusUnauthorized, "wrong_token_type", "wrong token type"},
	{service.ErrRevoked, http.StatusUnauthorized, "token_revoked", "token revoked"},
	{service.ErrInsufficientPermissions, http.StatusUnauthorized, "insufficient_permissions", "insufficient permissions"},
	{service.ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated", "not authenticated"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid credentials"},
	{service.ErrInvalidUsername, http.StatusBadRequest, "invalid_argument", "invalid username"},
	{service.ErrWeakPassword, http.StatusBadRequest, "invalid_argument", "password is too weak"},
	{service.ErrEmptyPassword, http.StatusBadRequest, "invalid_argument", "password is empty"},
	{ErrBadRequest, http.StatusBadRequest, "invalid_argument", "invalid argument"},
	{service.ErrUsernameTaken, http.StatusConflict, "already_exists", "username already taken"},
	{service.ErrUserNotFound, http.StatusNotFound, "not_found", "user not found"},
	{context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
}

// ErrBadRequest - тело запроса не разобрано.
var ErrBadRequest = errors.New("bad request")

// ToHTTP конвертирует ошибку сервисного слоя в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг.
//   - err не узнан - 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	if err != nil {
		for _, m := range table {
			if errors.Is(err, m.target) {
				return m.status, ErrorResponse{Error: APIError{Code: m.code, Message: m.message}}
			}
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    "internal",
			Message: "internal error",
		},
	}
}

// WriteError - хелпер для HTTP-хендлеров и middleware.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	// Прокидываем request_id для фронта, чтобы он мог репортить баги с привязкой.
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
