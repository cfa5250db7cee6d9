// service содержит бизнес-логику подсистемы сессий:
// выпуск/проверку access-токенов, выпуск/ротацию/отзыв refresh-токенов
// и сценарии логина, регистрации и выхода поверх них.
//
// Основные аспекты:
//   - Ни один тип пакета не хранит состояние запроса; единственный общий
//     изменяемый ресурс - хранилище refresh-токенов (storage.RefreshTokenStorage).
//   - Ошибки возвращаются sentinel-значениями из errors.go и маппятся
//     транспортом в HTTP-статусы (см. internal/http/errors).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-session-auth/internal/metrics"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/pkg/log"
	"github.com/pribylovaa/go-session-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-session-auth/internal/storage"
)

// Service - фасад сценариев аутентификации для HTTP-слоя.
type Service struct {
	access    *AccessManager
	refresh   *RefreshManager
	verifier  CredentialVerifier
	directory UserDirectory
	users     storage.UserStorage
}

// New создаёт новый экземпляр Service.
// users используется только регистрацией и может быть nil, если она не нужна.
func New(access *AccessManager, refresh *RefreshManager, verifier CredentialVerifier, directory UserDirectory, users storage.UserStorage) *Service {
	return &Service{
		access:    access,
		refresh:   refresh,
		verifier:  verifier,
		directory: directory,
		users:     users,
	}
}

// Access возвращает менеджер access-токенов (для middleware).
func (s *Service) Access() *AccessManager { return s.access }

// Refresh возвращает менеджер refresh-токенов (для middleware).
func (s *Service) Refresh() *RefreshManager { return s.refresh }

// Directory возвращает справочник пользователей (для middleware).
func (s *Service) Directory() UserDirectory { return s.directory }

// Login проверяет учётные данные и открывает новую логин-сессию.
func (s *Service) Login(ctx context.Context, username, password string) (*models.TokenPair, error) {
	const op = "service.Login"

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	id, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			log.From(ctx).Warn("login_failed",
				slog.String("op", op),
				slog.String("username", redact.Username(username)),
			)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.startSession(ctx, id)
}

// Register создаёт пользователя с ролью CLIENT и сразу открывает сессию.
func (s *Service) Register(ctx context.Context, username, password string) (*models.TokenPair, error) {
	const op = "service.Register"

	if s.users == nil {
		return nil, fmt.Errorf("%s: registration is not configured", op)
	}

	norm, err := validateUsername(username)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Username:     norm,
		PasswordHash: hashed,
		Roles:        []models.Role{models.RoleClient},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrUsernameTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_registered",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return s.startSession(ctx, user.Identity())
}

// RefreshPair ротирует предъявленный refresh-токен и выпускает новую пару.
// id - свежая личность из справочника (см. middleware.RefreshGate).
func (s *Service) RefreshPair(ctx context.Context, presented string, id models.Identity) (*models.TokenPair, error) {
	const op = "service.RefreshPair"

	issued, err := s.refresh.Rotate(ctx, presented, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.pair(id, issued)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// Logout завершает логин-сессию предъявленного refresh-токена.
func (s *Service) Logout(ctx context.Context, presented string) error {
	const op = "service.Logout"

	if err := s.refresh.RevokeToken(ctx, presented); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// LogoutAll завершает все сессии текущего пользователя.
func (s *Service) LogoutAll(ctx context.Context, username string) (int64, error) {
	const op = "service.LogoutAll"

	n, err := s.refresh.Revoke(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// ForceSignOut - административный отзыв всех сессий пользователя.
// Сессии отзываются по каноническому имени из справочника: имя в пути
// запроса может отличаться регистром.
func (s *Service) ForceSignOut(ctx context.Context, username string) (int64, error) {
	const op = "service.ForceSignOut"

	id, err := s.directory.Lookup(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := s.refresh.Revoke(ctx, id.Username)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("sessions_force_revoked",
		slog.String("op", op),
		slog.String("username", redact.Username(id.Username)),
		slog.Int64("deleted", n),
	)

	return n, nil
}

func (s *Service) startSession(ctx context.Context, id models.Identity) (*models.TokenPair, error) {
	const op = "service.startSession"

	issued, err := s.refresh.StartSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.pair(id, issued)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.SessionsStartedTotal.Inc()

	return pair, nil
}

func (s *Service) pair(id models.Identity, issued *IssuedRefresh) (*models.TokenPair, error) {
	access, accessExp, err := s.access.Issue(id)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     issued.Token,
		RefreshExpiresAt: issued.ExpiresAt,
		LoginSessionID:   issued.LoginSessionID,
		Identity:         id,
	}, nil
}
