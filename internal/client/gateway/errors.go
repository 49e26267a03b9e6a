package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds returned by Gateway implementations. Match them with errors.Is;
// use errors.As with *APIError for the offending field and server message.
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateMobile    = errors.New("mobile already registered")
	ErrWeakPassword       = errors.New("weak password")
	ErrInvalidField       = errors.New("invalid field")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrExpiredCode        = errors.New("verification code expired")
	ErrBucketTokenMissing = errors.New("bucket token missing")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrVerificationNeeded = errors.New("verification needed")
	ErrRateLimited        = errors.New("too many requests")
	ErrUnavailable        = errors.New("gateway unavailable")
	ErrGeneric            = errors.New("gateway error")
)

// Field names used in APIError.Field and in per-field validation maps.
const (
	FieldFullName    = "fullname"
	FieldEmail       = "email"
	FieldCountryCode = "countryCode"
	FieldMobile      = "mobile"
	FieldPassword    = "password"
	FieldCode        = "code"
)

// APIError describes a failed gateway call.
type APIError struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Code is the raw backend errCode, if any.
	Code string
	// Field names the input the error is attributed to, if any.
	Field string
	// Message is the server-provided message, or the transport error text.
	Message string
	// Status is the HTTP status; zero for transport failures.
	Status int
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%v: %s (%s)", e.Kind, e.Message, e.Code)
	case e.Message != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	default:
		return e.Kind.Error()
	}
}

func (e *APIError) Unwrap() error { return e.Kind }

// IsTransient reports whether err is worth retrying as-is: transport
// failures, 5xx responses and rate limiting.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRateLimited)
}

// FieldOf returns the field an error is attributed to, or "".
func FieldOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Field
	}
	return ""
}

type codeMapping struct {
	kind  error
	field string
}

// errCodes mirrors the backend errCode catalogue.
var errCodes = map[string]codeMapping{
	"EmailAlreadyExists":         {ErrDuplicateEmail, FieldEmail},
	"MobileAlreadyExists":        {ErrDuplicateMobile, FieldMobile},
	"WeakPassword":               {ErrWeakPassword, FieldPassword},
	"errMsg_PasswordDoesntMatch": {ErrInvalidField, FieldPassword},
	"InvalidEmail":               {ErrInvalidField, FieldEmail},
	"InvalidMobile":              {ErrInvalidField, FieldMobile},
	"InvalidFullname":            {ErrInvalidField, FieldFullName},
	"InvalidVerificationCode":    {ErrInvalidCode, FieldCode},
	"VerificationCodeExpired":    {ErrExpiredCode, FieldCode},
	"InvalidCredentials":         {ErrUnauthorized, FieldPassword},
	"WrongPassword":              {ErrUnauthorized, FieldPassword},
	"UserNotFound":               {ErrUnauthorized, FieldEmail},
	"UserIsBlocked":              {ErrUnauthorized, ""},
	"UserIsArchived":             {ErrUnauthorized, ""},
	"EmailVerificationNeeded":    {ErrVerificationNeeded, FieldEmail},
	"MobileVerificationNeeded":   {ErrVerificationNeeded, FieldMobile},
	"BucketTokenMissing":         {ErrBucketTokenMissing, ""},
}

// errorBody is the backend error envelope.
type errorBody struct {
	Result  string `json:"result"`
	Status  int    `json:"status"`
	ErrCode string `json:"errCode"`
	Message string `json:"message"`
}

// classify turns an HTTP status and decoded error envelope into an APIError.
// Known errCodes win over the status.
func classify(status int, body errorBody) *APIError {
	e := &APIError{Code: body.ErrCode, Message: body.Message, Status: status}

	if m, ok := errCodes[body.ErrCode]; ok {
		e.Kind, e.Field = m.kind, m.field
		return e
	}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = ErrUnauthorized
	case status == http.StatusForbidden, status == http.StatusTooManyRequests:
		e.Kind = ErrRateLimited
	case status >= http.StatusInternalServerError:
		e.Kind = ErrUnavailable
	default:
		e.Kind = ErrGeneric
	}
	return e
}
