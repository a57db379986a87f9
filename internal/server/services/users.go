// Package services holds the backend's application services: accounts and
// tokens, record storage and photo upload URLs.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/cryptox"
	"github.com/dmitrijs2005/dropsync/internal/dbx"
	"github.com/dmitrijs2005/dropsync/internal/server/auth"
	"github.com/dmitrijs2005/dropsync/internal/server/config"
	"github.com/dmitrijs2005/dropsync/internal/server/models"
	"github.com/dmitrijs2005/dropsync/internal/server/repositories/repomanager"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult identifies the officer and carries a fresh token pair.
type LoginResult struct {
	UserID string
	Tokens TokenPair
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

// Register creates an account with an argon2id password hash.
func (s *UserService) Register(ctx context.Context, username string, password []byte) (*models.User, error) {
	username = strings.TrimSpace(username)
	if utf8.RuneCountInString(username) < minUsernameLen {
		return nil, fmt.Errorf("%w: username must have at least %d characters", common.ErrValidation, minUsernameLen)
	}
	if utf8.RuneCount(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must have at least %d characters", common.ErrValidation, minPasswordLen)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{UserName: username, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrUsernameAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// Login checks the password and issues a token pair.
func (s *UserService) Login(ctx context.Context, username string, password []byte) (*LoginResult, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	ok, err := cryptox.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	pair, err := s.generateTokenPair(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{UserID: user.ID, Tokens: *pair}, nil
}

// RefreshToken trades a refresh token for a new pair. The old token is
// revoked in the same transaction, so it can be used once.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.RefreshTokens(tx)

		token, err := repo.Find(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error searching refresh token: %w", err)
		}
		if token.ExpiresAt.Before(s.now()) {
			return common.ErrTokenExpired
		}
		if err := repo.Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}

		pair, err = s.generateTokenPair(ctx, tx, token.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// PurgeExpiredTokens deletes refresh tokens that can no longer be used.
func (s *UserService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, s.now())
}

func (s *UserService) generateTokenPair(ctx context.Context, db dbx.DBTX, userID string) (*TokenPair, error) {
	now := s.now()

	accessToken, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	refreshToken, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	err = s.repomanager.RefreshTokens(db).Create(ctx, userID, refreshToken, now.Add(s.refreshTokenValidityDuration))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
