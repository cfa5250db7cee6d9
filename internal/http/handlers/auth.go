package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/go-session-auth/internal/http/errors"
	"github.com/pribylovaa/go-session-auth/internal/http/middleware"
	"github.com/pribylovaa/go-session-auth/internal/identity"
	"github.com/pribylovaa/go-session-auth/internal/service"
)

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in CredentialsRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	pair, err := h.svc.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	middleware.SetSessionCookies(w, pair, h.cookies)
	writeJSON(w, http.StatusOK, sessionFromPair(pair))
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in CredentialsRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	pair, err := h.svc.Register(r.Context(), in.Username, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	middleware.SetSessionCookies(w, pair, h.cookies)
	writeJSON(w, http.StatusCreated, sessionFromPair(pair))
}

// Refresh обменивает refresh-cookie на новую пару. Стоит за RefreshGate.
// Отказ ротации удаляет обе cookie: повторно предъявлять этот токен бессмысленно.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.From(r.Context())
	presented := middleware.PresentedRefreshToken(r.Context())
	if !ok || presented == "" {
		apierrors.WriteError(w, r, service.ErrNotAuthenticated)
		return
	}

	pair, err := h.svc.RefreshPair(r.Context(), presented, id)
	if err != nil {
		if status, _ := apierrors.ToHTTP(err); status == http.StatusUnauthorized {
			middleware.ClearSessionCookies(w, h.cookies)
		}
		apierrors.WriteError(w, r, err)
		return
	}

	middleware.SetSessionCookies(w, pair, h.cookies)
	writeJSON(w, http.StatusOK, sessionFromPair(pair))
}

// Logout закрывает текущую логин-сессию и удаляет cookie. Стоит за RefreshGate.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	presented := middleware.PresentedRefreshToken(r.Context())
	if presented == "" {
		apierrors.WriteError(w, r, service.ErrNotAuthenticated)
		return
	}

	if err := h.svc.Logout(r.Context(), presented); err != nil {
		if status, _ := apierrors.ToHTTP(err); status == http.StatusUnauthorized {
			middleware.ClearSessionCookies(w, h.cookies)
		}
		apierrors.WriteError(w, r, err)
		return
	}

	middleware.ClearSessionCookies(w, h.cookies)
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll закрывает все сессии текущего пользователя.
func (h *Handlers) LogoutAll(w http.ResponseWriter, r *http.Request) {
	username := identity.CurrentUsername(r.Context())
	if username == "" {
		apierrors.WriteError(w, r, service.ErrNotAuthenticated)
		return
	}

	n, err := h.svc.LogoutAll(r.Context(), username)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	middleware.ClearSessionCookies(w, h.cookies)
	writeJSON(w, http.StatusOK, RevokedResponse{Revoked: n})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.From(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrNotAuthenticated)
		return
	}

	writeJSON(w, http.StatusOK, identityResponse(id))
}

// ForceSignOut - DELETE /admin/users/{username}/sessions.
func (h *Handlers) ForceSignOut(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	n, err := h.svc.ForceSignOut(r.Context(), username)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RevokedResponse{Revoked: n})
}
