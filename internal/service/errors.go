package service

import (
	"errors"

	"github.com/pribylovaa/go-session-auth/internal/token"
)

// Виды отказов аутентификации. Все они транспортом маппятся в HTTP 401
// с отдельным кодом; ошибки хранилища/справочника - в HTTP 500.
var (
	// ErrMissingCookie - в запросе нет cookie с токеном.
	ErrMissingCookie = errors.New("token cookie is missing")

	// ErrExpired - истёк срок токена (exp в токене или срок записи в хранилище).
	ErrExpired = token.ErrExpired

	// ErrInvalidSignatureOrFormat - токен повреждён или подписан не нашим ключом.
	ErrInvalidSignatureOrFormat = token.ErrInvalidSignatureOrFormat

	// ErrWrongTokenType - access-токен предъявлен вместо refresh или наоборот.
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrRevoked - записи для токена нет: он уже обменян при ротации или отозван.
	ErrRevoked = errors.New("refresh token revoked")

	// ErrSessionExpired - достигнут абсолютный предел логин-сессии.
	ErrSessionExpired = errors.New("login session expired")

	// ErrInsufficientPermissions - у субъекта нет нужной роли.
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// ErrNotAuthenticated - маршрут требует аутентификации, а субъекта нет.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidCredentials - пара логин/пароль неверна или пользователь не найден.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var (
	// ErrRefreshTokenCollision - исчерпаны попытки сохранить уникальный refresh-токен.
	// Транспорт: HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")

	// ErrUserNotFound - пользователя нет в справочнике (административные операции).
	// Транспорт: HTTP 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken - имя уже занято. Транспорт: HTTP 409.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidUsername - имя не проходит политику. Транспорт: HTTP 400.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrWeakPassword - пароль не удовлетворяет политикам сложности. Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword - пароль пустой. Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")
)
