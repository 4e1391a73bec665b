package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrEmailRequired      = errors.New("auth: email is required")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrEmailAlreadyTaken  = errors.New("auth: email already registered")
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrTokenNotFound      = errors.New("auth: token not found")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrUnauthorized       = errors.New("auth: unauthorized")
	ErrAdminRequired      = errors.New("auth: admin access required")
)
