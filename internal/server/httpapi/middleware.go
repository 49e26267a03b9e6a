package httpapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/masaclient/internal/common"
	"github.com/dmitrijs2005/masaclient/internal/logging"
	"github.com/dmitrijs2005/masaclient/internal/server/sessions"
	"github.com/dmitrijs2005/masaclient/internal/server/users"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	requestIDKey = "requestID"
	sessionKey   = "session"
	userKey      = "user"
	tokenKey     = "token"
	ownerKey     = "bucketOwner"
)

// requestID keeps the caller's X-Request-Id or makes one up.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(common.RequestIDHeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(common.RequestIDHeaderName, id)
		c.Next()
	}
}

func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// ipLimiter hands out one token bucket per client address.
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	logger   logging.Logger
}

func newIPLimiter(rps float64, burst int, l logging.Logger) *ipLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipLimiter{limiters: map[string]*rate.Limiter{}, limit: rate.Limit(rps), burst: burst, logger: l}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	return lim
}

func (l *ipLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.get(ip).Allow() {
			l.logger.Warn(c.Request.Context(), "rate limit exceeded", "ip", ip)
			abort(c, http.StatusTooManyRequests, errCodeTooManyRequests, "rate limit exceeded, try again later")
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader(common.AuthorizationHeaderName)
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// requireAccess admits requests carrying a live access token.
func (s *HTTPServer) requireAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, errCodeUnauthorized, "missing token")
			return
		}
		sess, user, err := s.users.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Set(sessionKey, sess)
		c.Set(userKey, user)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// requireBucket admits requests carrying a bucket upload token.
func (s *HTTPServer) requireBucket() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, errCodeUnauthorized, "missing bucket token")
			return
		}
		owner, err := s.users.AuthenticateBucket(token)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

func currentSession(c *gin.Context) (*sessions.Session, *users.User) {
	sess, _ := c.MustGet(sessionKey).(*sessions.Session)
	user, _ := c.MustGet(userKey).(*users.User)
	return sess, user
}
