// Package auth mints and checks the gateway's HS256 tokens.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Token scopes. An access token authorizes the auth API; a bucket token
// only authorizes uploads.
const (
	ScopeAccess = "access"
	ScopeBucket = "bucket"
)

// Claims — структура утверждений, которая включает стандартные утверждения и
// пользовательские UserID, SessionID и Scope
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId,omitempty"`
	Scope     string `json:"scope"`
}

func GenerateToken(userID, sessionID, scope string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:    userID,
		SessionID: sessionID,
		Scope:     scope,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and checks it carries scope. Expired
// tokens yield common.ErrTokenExpired, anything else unusable yields
// common.ErrInvalidToken.
func ParseToken(tokenString, scope string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" || claims.Scope != scope {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
