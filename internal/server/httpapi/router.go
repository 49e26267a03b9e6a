package httpapi

import (
	"github.com/dmitrijs2005/masaclient/internal/server/codes"
	"github.com/dmitrijs2005/masaclient/internal/server/storage"
	"github.com/gin-gonic/gin"
)

// Router builds the gin engine with every route of the gateway.
func (s *HTTPServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), s.requestLogger(), gin.CustomRecovery(s.recovered))
	if s.config.RequestsPerSecond > 0 {
		r.Use(newIPLimiter(s.config.RequestsPerSecond, s.config.Burst, s.logger).middleware())
	}

	authAPI := r.Group("/auth-api")
	{
		authAPI.POST("/v1/registeruser", s.registerUser)
		authAPI.POST("/login", s.login)
		authAPI.POST("/auth/social-login-result", s.socialLoginResult)

		vs := authAPI.Group("/verification-services")
		vs.POST("/mobile-verification/start", s.startVerification(codes.MobileVerification))
		vs.POST("/mobile-verification/complete", s.completeVerification(codes.MobileVerification))
		vs.POST("/email-verification/start", s.startVerification(codes.EmailVerification))
		vs.POST("/email-verification/complete", s.completeVerification(codes.EmailVerification))
		vs.POST("/password-reset-by-mobile/start", s.startPasswordReset(codes.PasswordResetByMobile))
		vs.POST("/password-reset-by-mobile/complete", s.completePasswordReset(codes.PasswordResetByMobile))
		vs.POST("/password-reset-by-email/start", s.startPasswordReset(codes.PasswordResetByEmail))
		vs.POST("/password-reset-by-email/complete", s.completePasswordReset(codes.PasswordResetByEmail))

		authed := authAPI.Group("", s.requireAccess())
		authed.POST("/logout", s.logout)
		authed.GET("/currentuser", s.currentUser)
		authed.PATCH("/v1/profile/:id", s.updateProfile)
		authed.PATCH("/v1/userpassword/:id", s.updatePassword)
		authed.DELETE("/v1/archiveprofile/:id", s.archiveProfile)

		if s.config.TestMode {
			authAPI.POST("/test/social-accounts", s.addSocialAccount)
		}
	}

	r.GET("/masasettings-api/v1/supportedcountries", s.supportedCountries)

	bucket := r.Group("/bucket")
	bucket.POST("/upload", s.requireBucket(), s.upload)
	if mem, ok := s.avatars.(*storage.MemoryStore); ok {
		bucket.GET("/download/*key", s.download(mem))
	}

	return r
}
