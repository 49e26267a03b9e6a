// Package codes issues and checks one-time numeric codes for mobile and
// email verification and for password resets.
package codes

import (
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/common"
)

// Purpose separates codes for the same target.
type Purpose string

const (
	MobileVerification Purpose = "mobile-verification"
	EmailVerification  Purpose = "email-verification"
	PasswordResetByMobile Purpose = "password-reset-by-mobile"
	PasswordResetByEmail  Purpose = "password-reset-by-email"
)

var (
	ErrTooFrequent = errors.New("code requested too frequently")
	ErrInvalidCode = errors.New("invalid code")
	ErrExpired     = errors.New("code expired")
)

type Code struct {
	Index     int
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type key struct {
	purpose Purpose
	target  string
}

// Store holds at most one live code per purpose and target. A new code
// replaces the previous one.
type Store struct {
	mu             sync.Mutex
	codes          map[key]Code
	index          int
	validity       time.Duration
	resendInterval time.Duration
	length         int

	now      func() time.Time
	generate func(n int) (string, error)
}

func NewStore(validity, resendInterval time.Duration) *Store {
	return &Store{
		codes:          map[key]Code{},
		validity:       validity,
		resendInterval: resendInterval,
		length:         common.MobileCodeLength,
		now:            time.Now,
		generate:       common.MakeNumericCode,
	}
}

// Issue creates a code for target, refusing when the previous one is
// younger than the resend interval.
func (s *Store) Issue(purpose Purpose, target string) (Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{purpose, target}
	now := s.now()
	if prev, ok := s.codes[k]; ok && now.Before(prev.IssuedAt.Add(s.resendInterval)) {
		return Code{}, ErrTooFrequent
	}

	value, err := s.generate(s.length)
	if err != nil {
		return Code{}, err
	}
	s.index++
	c := Code{Index: s.index, Value: value, IssuedAt: now, ExpiresAt: now.Add(s.validity)}
	s.codes[k] = c
	return c, nil
}

// Verify consumes the code on success. A wrong value leaves the code in
// place so the user can retry.
func (s *Store) Verify(purpose Purpose, target, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{purpose, target}
	c, ok := s.codes[k]
	if !ok {
		return ErrInvalidCode
	}
	if !s.now().Before(c.ExpiresAt) {
		delete(s.codes, k)
		return ErrExpired
	}
	if subtle.ConstantTimeCompare([]byte(c.Value), []byte(value)) != 1 {
		return ErrInvalidCode
	}
	delete(s.codes, k)
	return nil
}
