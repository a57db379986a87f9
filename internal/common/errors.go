package common

import "errors"

var (
	// repository specific errors
	ErrNotFound      = errors.New("data tidak ditemukan")
	ErrUnknownColumn = errors.New("unknown column")
	ErrInvalidKind   = errors.New("invalid record kind")

	// service specific errors
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("user not authenticated")
	ErrOffline      = errors.New("tidak ada koneksi internet")

	// auth specific errors
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenExpired          = errors.New("token expired")
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrUsernameAlreadyExists = errors.New("username already exists")

	// validation errors
	ErrValidation = errors.New("validation error")
)
