// Package session keeps the single current SessionCredential of the client
// and turns successful registration or verification into one.
package session

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
	"github.com/golang-jwt/jwt/v5"
)

// Source tells which call produced a credential.
type Source string

const (
	SourceRegistration Source = "registration"
	SourceLogin        Source = "login"
)

// Credential is the authenticated session. At most one is current.
type Credential struct {
	AccessToken string    `json:"accessToken"`
	UserID      string    `json:"userId"`
	SessionID   string    `json:"sessionId,omitempty"`
	Email       string    `json:"email,omitempty"`
	FullName    string    `json:"fullname,omitempty"`
	BucketToken string    `json:"userBucketToken,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitzero"`
	Source      Source    `json:"source"`
}

// Expired reports whether the token carries an exp claim in the past.
// Tokens without exp never expire client-side.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// BelongsTo reports whether the credential was issued to the given account.
// An empty accountID falls back to the email.
func (c Credential) BelongsTo(accountID, email string) bool {
	if accountID != "" && c.UserID != "" {
		return c.UserID == accountID
	}
	return email != "" && strings.EqualFold(c.Email, email)
}

func FromLogin(res *gateway.LoginResult) Credential {
	return Credential{
		AccessToken: res.AccessToken,
		UserID:      res.UserID,
		SessionID:   res.SessionID,
		Email:       res.Email,
		FullName:    res.FullName,
		BucketToken: res.UserBucketToken,
		ExpiresAt:   tokenExpiry(res.AccessToken),
		Source:      SourceLogin,
	}
}

func FromRegistration(res *gateway.RegisterResult, email, fullName string) Credential {
	return Credential{
		AccessToken: res.AccessToken,
		UserID:      res.AccountID,
		Email:       email,
		FullName:    fullName,
		BucketToken: res.UserBucketToken,
		ExpiresAt:   tokenExpiry(res.AccessToken),
		Source:      SourceRegistration,
	}
}

// tokenExpiry reads the exp claim without verifying the signature; the
// client has no key and only uses it to avoid sending dead tokens.
func tokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
