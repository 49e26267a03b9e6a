package registration

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/masaclient/internal/client/gateway"
)

const (
	msgFullNameRequired    = "Full name is required."
	msgEmailInvalid        = "Enter a valid email address."
	msgCountryCodeRequired = "Choose a country code."
	msgMobileDigits        = "Phone number must be exactly %d digits."
	msgPasswordTooShort    = "Password must be at least %d characters."
	msgCodeRequired        = "Enter the verification code."
	msgCodeDigits          = "The code is %d digits."

	msgCodeSent           = "Verification code sent."
	msgCodeResent         = "Verification code sent again."
	msgCodeNotVerified    = "Verification failed."
	msgResendNotYet       = "Please wait before requesting a new code."
	msgVerified           = "Your account is verified."
	msgLoginLater         = "Your account is verified. Please sign in."
	msgAvatarSaved        = "Profile photo saved."
	msgAvatarFailed       = "Profile photo could not be saved. You can add it later from your profile."
	msgCountriesFailed    = "Country codes could not be loaded. Enter the code manually."
	msgUnavailable        = "The service is unavailable. Please try again."
	msgRateLimited        = "Too many requests. Please wait a moment."
	msgCancelled          = "The request was cancelled."
	msgGeneric            = "Something went wrong. Please try again."
	msgRegistrationFailed = "Your account could not be created."
)

// kindMessages are shown on the field an APIError is attributed to.
var kindMessages = map[error]string{
	gateway.ErrDuplicateEmail:     "This email address is already in use.",
	gateway.ErrDuplicateMobile:    "This phone number is already in use.",
	gateway.ErrWeakPassword:       "Password is too weak. Use at least 6 characters with an uppercase letter and a digit.",
	gateway.ErrInvalidCode:        "The verification code is wrong or has expired.",
	gateway.ErrExpiredCode:        "The verification code has expired. Request a new one.",
	gateway.ErrVerificationNeeded: "Verification is required.",
	gateway.ErrUnauthorized:       "Email or password is incorrect.",
}

var invalidFieldMessages = map[string]string{
	gateway.FieldEmail:    "Invalid email address.",
	gateway.FieldMobile:   "Invalid phone number format.",
	gateway.FieldFullName: "Invalid full name.",
	gateway.FieldPassword: "Passwords do not match.",
}

// fieldMessage returns the message to attach to a field for err.
func fieldMessage(err error) string {
	if errors.Is(err, gateway.ErrInvalidField) {
		if m, ok := invalidFieldMessages[gateway.FieldOf(err)]; ok {
			return m
		}
	}
	for kind, msg := range kindMessages {
		if errors.Is(err, kind) {
			return msg
		}
	}
	return msgGeneric
}

// bannerMessage returns the banner text for an error that has no field.
func bannerMessage(err error, fallback string) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return msgCancelled
	case errors.Is(err, gateway.ErrRateLimited):
		return msgRateLimited
	case errors.Is(err, gateway.ErrUnavailable):
		return msgUnavailable
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
