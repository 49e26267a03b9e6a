package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/masaclient/internal/common"
	"github.com/dmitrijs2005/masaclient/internal/server/codes"
	"github.com/dmitrijs2005/masaclient/internal/server/users"
	"github.com/gin-gonic/gin"
)

// Error codes specific to the gateway itself.
const (
	errCodeBadRequest      = "BadRequest"
	errCodeUnauthorized    = "Unauthorized"
	errCodeTokenExpired    = "TokenExpired"
	errCodeTooManyRequests = "TooManyRequests"
	errCodeInternal        = "InternalError"
	errCodeInvalidBucket   = "InvalidBucket"
)

type errorResponse struct {
	Result  string `json:"result"`
	Status  int    `json:"status"`
	ErrCode string `json:"errCode"`
	Message string `json:"message"`
}

type errorMapping struct {
	err     error
	status  int
	errCode string
}

// errorMappings is checked in order with errors.Is.
var errorMappings = []errorMapping{
	{users.ErrEmailExists, http.StatusConflict, "EmailAlreadyExists"},
	{users.ErrMobileExists, http.StatusConflict, "MobileAlreadyExists"},
	{users.ErrWeakPassword, http.StatusBadRequest, "WeakPassword"},
	{users.ErrInvalidEmail, http.StatusBadRequest, "InvalidEmail"},
	{users.ErrInvalidMobile, http.StatusBadRequest, "InvalidMobile"},
	{users.ErrInvalidFullname, http.StatusBadRequest, "InvalidFullname"},
	{users.ErrAlreadyVerified, http.StatusBadRequest, "AlreadyVerified"},
	{users.ErrUserNotFound, http.StatusNotFound, "UserNotFound"},
	{users.ErrWrongPassword, http.StatusUnauthorized, "WrongPassword"},
	{users.ErrEmailVerificationNeeded, http.StatusForbidden, "EmailVerificationNeeded"},
	{users.ErrMobileVerificationNeeded, http.StatusForbidden, "MobileVerificationNeeded"},
	{users.ErrForbidden, http.StatusForbidden, "NotAllowed"},
	{users.ErrUserArchived, http.StatusUnauthorized, "UserIsArchived"},
	{users.ErrSocialCodeNotFound, http.StatusNotFound, "SocialCodeNotFound"},
	{codes.ErrInvalidCode, http.StatusForbidden, "InvalidVerificationCode"},
	{codes.ErrExpired, http.StatusForbidden, "VerificationCodeExpired"},
	{codes.ErrTooFrequent, http.StatusForbidden, "VerificationCodeTooFrequent"},
	{common.ErrTokenExpired, http.StatusUnauthorized, errCodeTokenExpired},
	{common.ErrInvalidToken, http.StatusUnauthorized, errCodeUnauthorized},
	{common.ErrorUnauthorized, http.StatusUnauthorized, errCodeUnauthorized},
}

func lookupError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.errCode
		}
	}
	return http.StatusInternalServerError, errCodeInternal
}

func abort(c *gin.Context, status int, errCode, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Result: "ERR", Status: status, ErrCode: errCode, Message: message})
}

// fail answers with the envelope matching err. Unknown errors are logged
// and reported without detail.
func (s *HTTPServer) fail(c *gin.Context, err error) {
	status, errCode := lookupError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "error", err, "request_id", c.GetString(requestIDKey))
		msg = "internal error"
	}
	abort(c, status, errCode, msg)
}

func (s *HTTPServer) recovered(c *gin.Context, rec any) {
	s.logger.Error(c.Request.Context(), "panic", "recovered", rec, "request_id", c.GetString(requestIDKey))
	abort(c, http.StatusInternalServerError, errCodeInternal, "internal error")
}
