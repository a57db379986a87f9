// Package auth issues and verifies the backend's HS256 access tokens.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the officer ID next to the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// GenerateToken signs an access token for userID that expires ttl after now.
func GenerateToken(userID string, secretKey []byte, ttl time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	})
	return token.SignedString(secretKey)
}

// GetUserIDFromToken verifies tokenString and returns its user ID.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// verification common.ErrInvalidToken.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.UserID, nil
}
