// Package common contains constants, sentinel errors and small helpers shared
// by the Masa client and the development gateway.
package common

import "time"

// SessionStorageKey is the key under which the current session credential is
// persisted in the local metadata store.
const SessionStorageKey = "accessToken"

// LastEmailKey remembers who logged in last, to prefill the login prompt.
const LastEmailKey = "lastEmail"

// AuthorizationHeaderName carries bearer tokens on outbound requests.
const AuthorizationHeaderName = "Authorization"

// RequestIDHeaderName correlates a client request with gateway logs.
const RequestIDHeaderName = "X-Request-Id"

const (
	// DefaultVerificationCooldown is the minimum wait between verification
	// code sends.
	DefaultVerificationCooldown = 60 * time.Second

	// MobileCodeLength is the number of digits in an SMS verification code.
	MobileCodeLength = 6

	// DefaultNationalNumberLength is the digit count of a national number
	// without its calling code.
	DefaultNationalNumberLength = 10

	// DefaultPasswordMinLength is the shortest password accepted client side.
	DefaultPasswordMinLength = 6
)
