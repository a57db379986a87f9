// Package services contains the application services of the field client.
// This file defines the authentication service: online/offline login,
// register, logout and the locally cached session.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/dropsync/internal/client/client"
	"github.com/dmitrijs2005/dropsync/internal/client/models"
	"github.com/dmitrijs2005/dropsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/cryptox"
	"github.com/dmitrijs2005/dropsync/internal/dbx"
)

// SessionProvider resolves the signed-in user.
type SessionProvider interface {
	// CurrentUser returns common.ErrUnauthorized when nobody is signed in.
	CurrentUser(ctx context.Context) (*models.Session, error)
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - OnlineLogin: authenticate against the server and cache the session
//     together with an offline verifier.
//   - OfflineLogin: verify credentials against the locally cached verifier.
//   - Resume: restore a cached session and its refresh token on startup.
//   - Logout: forget the cached session; queued work is kept.
type AuthService interface {
	SessionProvider

	OnlineLogin(ctx context.Context, username string, password []byte) (*models.Session, error)
	OfflineLogin(ctx context.Context, username string, password []byte) (*models.Session, error)
	Resume(ctx context.Context) (*models.Session, error)
	Register(ctx context.Context, username string, password []byte) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	// SaveRefreshToken persists a rotated refresh token.
	SaveRefreshToken(ctx context.Context, token string) error
}

// tokenHolder is implemented by clients that keep bearer tokens.
type tokenHolder interface {
	SetTokens(accessToken, refreshToken string)
	ClearTokens()
}

var sessionKeys = []string{
	metadata.KeyUserID,
	metadata.KeyUsername,
	metadata.KeySalt,
	metadata.KeyVerifier,
	metadata.KeyRefreshToken,
}

type authService struct {
	client client.Client
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) getMetadataRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

func (a *authService) CurrentUser(ctx context.Context) (*models.Session, error) {
	repo := a.getMetadataRepo(a.db)

	userID, err := repo.Get(ctx, metadata.KeyUserID)
	if err != nil {
		return nil, err
	}
	username, err := repo.Get(ctx, metadata.KeyUsername)
	if err != nil {
		return nil, err
	}
	if len(userID) == 0 {
		return nil, common.ErrUnauthorized
	}
	return &models.Session{UserID: string(userID), Username: string(username)}, nil
}

// OfflineLogin checks password against the verifier cached by the last
// online login. Missing cache yields client.ErrLocalDataNotAvailable, a
// wrong username or password client.ErrUnauthorized.
func (a *authService) OfflineLogin(ctx context.Context, username string, password []byte) (*models.Session, error) {
	repo := a.getMetadataRepo(a.db)

	values := make(map[string][]byte, 4)
	for _, k := range []string{metadata.KeyUserID, metadata.KeyUsername, metadata.KeySalt, metadata.KeyVerifier} {
		v, err := repo.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if len(v) == 0 {
			return nil, client.ErrLocalDataNotAvailable
		}
		values[k] = v
	}

	if string(values[metadata.KeyUsername]) != username {
		return nil, client.ErrUnauthorized
	}
	if !cryptox.CheckVerifier(password, values[metadata.KeySalt], values[metadata.KeyVerifier]) {
		return nil, client.ErrUnauthorized
	}
	return &models.Session{UserID: string(values[metadata.KeyUserID]), Username: username}, nil
}

// OnlineLogin authenticates against the server and caches the session plus a
// fresh salt and verifier so the same credentials work offline later.
func (a *authService) OnlineLogin(ctx context.Context, username string, password []byte) (*models.Session, error) {
	sess, err := a.client.Login(ctx, username, string(password))
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	salt := common.GenerateRandByteArray(32)
	key := cryptox.DeriveKey(password, salt)
	defer common.WipeByteArray(key)

	if err := a.saveOfflineData(ctx, sess, salt, cryptox.MakeVerifier(key)); err != nil {
		return nil, fmt.Errorf("offline data saving error: %w", err)
	}
	return sess, nil
}

func (a *authService) saveOfflineData(ctx context.Context, sess *models.Session, salt, verifier []byte) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		for k, v := range map[string][]byte{
			metadata.KeyUserID:   []byte(sess.UserID),
			metadata.KeyUsername: []byte(sess.Username),
			metadata.KeySalt:     salt,
			metadata.KeyVerifier: verifier,
		} {
			if err := repo.Set(ctx, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Resume returns the cached session and hands the stored refresh token to
// the client so the next call can obtain a new access token.
func (a *authService) Resume(ctx context.Context) (*models.Session, error) {
	sess, err := a.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	refresh, err := a.getMetadataRepo(a.db).Get(ctx, metadata.KeyRefreshToken)
	if err != nil {
		return nil, err
	}
	if th, ok := a.client.(tokenHolder); ok && len(refresh) > 0 {
		th.SetTokens("", string(refresh))
	}
	return sess, nil
}

func (a *authService) SaveRefreshToken(ctx context.Context, token string) error {
	repo := a.getMetadataRepo(a.db)
	if token == "" {
		return repo.Delete(ctx, metadata.KeyRefreshToken)
	}
	return repo.Set(ctx, metadata.KeyRefreshToken, []byte(token))
}

// Register creates a new account on the server.
func (a *authService) Register(ctx context.Context, username string, password []byte) error {
	return a.client.Register(ctx, username, string(password))
}

// Logout drops tokens and the cached session. Local records and the pending
// queue stay so nothing captured offline is lost.
func (a *authService) Logout(ctx context.Context) error {
	if th, ok := a.client.(tokenHolder); ok {
		th.ClearTokens()
	}
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := a.getMetadataRepo(tx)
		for _, k := range sessionKeys {
			if err := repo.Delete(ctx, k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
