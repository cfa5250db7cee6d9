package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier проверяет пару логин/пароль.
// При несовпадении возвращает ErrInvalidCredentials.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (models.Identity, error)
}

// UserDirectory - справочник пользователей: существование и роли.
type UserDirectory interface {
	Exists(ctx context.Context, username string) (bool, error)
	// Lookup возвращает ErrUserNotFound, если пользователя нет.
	Lookup(ctx context.Context, username string) (models.Identity, error)
}

// Directory - UserDirectory поверх storage.UserStorage.
type Directory struct {
	users storage.UserStorage
}

func NewDirectory(users storage.UserStorage) *Directory {
	return &Directory{users: users}
}

func (d *Directory) Exists(ctx context.Context, username string) (bool, error) {
	const op = "service.directory.Exists"

	ok, err := d.users.ExistsByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

func (d *Directory) Lookup(ctx context.Context, username string) (models.Identity, error) {
	const op = "service.directory.Lookup"

	user, err := d.users.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Identity{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	return user.Identity(), nil
}

// PasswordVerifier - CredentialVerifier по bcrypt-хэшу из справочника.
type PasswordVerifier struct {
	users storage.UserStorage
}

func NewPasswordVerifier(users storage.UserStorage) *PasswordVerifier {
	return &PasswordVerifier{users: users}
}

// dummyHash сравнивается при неизвестном имени, чтобы время ответа
// не выдавало существование пользователя.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.DefaultCost)

func (v *PasswordVerifier) Verify(ctx context.Context, username, password string) (models.Identity, error) {
	const op = "service.directory.Verify"

	user, err := v.users.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return models.Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return user.Identity(), nil
}

// HashPassword хэширует пароль с помощью bcrypt.
func HashPassword(password string) (string, error) {
	const op = "service.directory.HashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{2,31}$`)

// validateUsername обрезает пробелы и проверяет формат имени:
// 3–32 символа, латиница, цифры и ._-
func validateUsername(raw string) (string, error) {
	const op = "service.directory.validateUsername"

	name := strings.TrimSpace(raw)
	if !usernameRe.MatchString(name) {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidUsername)
	}

	return name, nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика по умолчанию: длина >= 8, хотя бы одна строчная, заглавная, цифра и спецсимвол.
func validatePassword(pw string) error {
	const op = "service.directory.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	// bcrypt не принимает пароли длиннее 72 байт.
	if len([]rune(pw)) < 8 || len(pw) > 72 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !(hasLower && hasUpper && hasDigit && hasSpecial) {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
