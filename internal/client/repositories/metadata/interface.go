// Package metadata is a small key/value store in the local database. The
// client keeps its session, offline login verifier and last-sync time here.
package metadata

import "context"

// Well-known keys.
const (
	KeyUserID   = "user_id"
	KeyUsername = "username"
	KeySalt     = "salt"
	KeyVerifier = "verifier"
	KeyLastSync = "last_sync"

	KeyRefreshToken = "refresh_token"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
