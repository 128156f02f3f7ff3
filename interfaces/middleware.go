package interfaces

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"shiftmatch/application"
	"shiftmatch/domain"
	"shiftmatch/infrastructure"
)

const (
	requestIDKey = "request_id"
	actorKey     = "actor"
	sessionKey   = "session_id"

	FacilitySessionCookie    = "shiftmatch_admin_session"
	SystemAdminSessionCookie = "shiftmatch_system_admin_session"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(requestIDKey)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("http request", fields...)
			return
		}
		logger.Info("http request", fields...)
	}
}

func instrument(m *infrastructure.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		m.HTTPInFlight.Inc()
		start := time.Now()
		c.Next()
		m.HTTPInFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

var errLoginRequired = domain.NewError(domain.ErrUnauthorized, "UNAUTHORIZED", "ログインが必要です")

// requireWorker accepts the worker JWT issued at login.
func (h *HTTPHandler) requireWorker() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			h.respondError(c, errLoginRequired)
			return
		}
		userID, err := h.Auth.ParseWorkerToken(token)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Set(actorKey, application.WorkerActor(userID))
		c.Next()
	}
}

// requireSession resolves the admin session cookie for the given account type.
func (h *HTTPHandler) requireSession(cookie string, want domain.AccountType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cookie)
		if err != nil || id == "" {
			h.respondError(c, errLoginRequired)
			return
		}
		sess, err := h.Auth.Session(c.Request.Context(), id, want)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Set(sessionKey, sess.ID)
		c.Set(actorKey, application.Actor{
			Type:       sess.AccountType,
			ID:         sess.AccountID,
			FacilityID: sess.FacilityID,
			Email:      sess.Email,
			Name:       sess.Name,
		})
		c.Next()
	}
}

// requireCron checks CRON_SECRET from the Authorization header or ?secret=.
func (h *HTTPHandler) requireCron() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.cronSecret == "" {
			if h.production {
				h.respondError(c, errLoginRequired)
				return
			}
			h.logger.Warn("CRON_SECRET is not set; cron endpoint is open", zap.String("path", c.FullPath()))
			c.Next()
			return
		}
		got := bearerToken(c)
		if got == "" {
			got = c.Query("secret")
		}
		if !secretMatches(got, h.cronSecret) {
			h.respondError(c, domain.NewError(domain.ErrUnauthorized, "UNAUTHORIZED", "invalid cron secret"))
			return
		}
		c.Next()
	}
}

func secretMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

const (
	limiterCacheSize = 10000
	limiterIdleTTL   = 30 * time.Minute
)

// ipLimiter hands out one token bucket per client IP. Idle buckets expire.
type ipLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	every    rate.Limit
	burst    int
}

func newIPLimiter(perMinute, burst int) *ipLimiter {
	return &ipLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](limiterCacheSize, nil, limiterIdleTTL),
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
	}
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters.Get(ip)
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters.Add(ip, lim)
	}
	return lim
}

func (h *HTTPHandler) rateLimit(l *ipLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{
				Error: "ログイン試行回数が多すぎます。しばらくしてから再度お試しください",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

func actor(c *gin.Context) application.Actor {
	a, _ := c.Get(actorKey)
	v, _ := a.(application.Actor)
	return v
}
