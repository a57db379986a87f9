package models

import "time"

// User is a field officer account. PasswordHash is an encoded argon2id hash.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	CreatedAt    time.Time
}
