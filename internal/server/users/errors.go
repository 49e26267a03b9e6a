package users

import "errors"

var (
	ErrEmailExists              = errors.New("email already exists")
	ErrMobileExists             = errors.New("mobile already exists")
	ErrInvalidEmail             = errors.New("invalid email")
	ErrInvalidMobile            = errors.New("invalid mobile")
	ErrInvalidFullname          = errors.New("invalid full name")
	ErrWeakPassword             = errors.New("weak password")
	ErrUserNotFound             = errors.New("user not found")
	ErrWrongPassword            = errors.New("wrong password")
	ErrEmailVerificationNeeded  = errors.New("email verification needed")
	ErrMobileVerificationNeeded = errors.New("mobile verification needed")
	ErrAlreadyVerified          = errors.New("already verified")
	ErrSocialCodeNotFound       = errors.New("social code not found")
	ErrForbidden                = errors.New("not allowed")
	ErrUserArchived             = errors.New("user is archived")
)
