package http

import (
	"math"
	nethttp "net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"unicms/backend/internal/handler"
	"unicms/backend/internal/service"
	"unicms/backend/internal/traffic"
	"unicms/backend/pkg/logger"
)

// AuthCookieName mirrors the cookie the auth handler issues.
const AuthCookieName = handler.AuthCookieName

// Test bypass headers. Honored only outside production so end-to-end suites
// can exercise the guarded endpoints without tripping the limiters.
const (
	BypassGuardHeader    = "X-Test-Bypass-Ddos"
	BypassThrottleHeader = "X-Test-Bypass-RL"
)

// DdosGuardMiddleware rejects clients the abuse classifier has blocked.
func DdosGuardMiddleware(guard *traffic.Guard, production bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !production && c.Request().Header.Get(BypassGuardHeader) == "true" {
				return next(c)
			}

			verdict := guard.Check(c.RealIP())
			if verdict.Allowed {
				return next(c)
			}

			if verdict.TriggeredNow {
				logger.Warn("client blocked for sustained aggressive traffic",
					"ip", c.RealIP(), "strikes", verdict.Strikes, "duration", verdict.Remaining)
				return c.JSON(nethttp.StatusTooManyRequests, map[string]interface{}{
					"status":  "error",
					"message": "too many requests, please try again later",
					"blockMs": verdict.Remaining.Milliseconds(),
					"strikes": verdict.Strikes,
				})
			}
			return c.JSON(nethttp.StatusTooManyRequests, map[string]interface{}{
				"status":       "error",
				"message":      "too many requests, please try again later",
				"remainingMs":  verdict.Remaining.Milliseconds(),
				"remainingMin": int(math.Ceil(verdict.Remaining.Minutes())),
			})
		}
	}
}

// ThrottleMiddleware enforces a fixed-window request budget per client IP.
func ThrottleMiddleware(throttle *traffic.Throttle, production bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !production && c.Request().Header.Get(BypassThrottleHeader) == "true" {
				return next(c)
			}

			allowed, remaining := throttle.Allow(c.RealIP())
			if allowed {
				return next(c)
			}

			seconds := traffic.RemainingSeconds(remaining)
			logger.Warn("request throttled", "ip", c.RealIP(), "remainingSec", seconds)
			return c.JSON(nethttp.StatusTooManyRequests, map[string]interface{}{
				"status":       "error",
				"message":      "too many submissions, please try again later",
				"remainingSec": seconds,
			})
		}
	}
}

// UploadLimiterMiddleware bounds how often one IP may hit the upload
// endpoint: burst requests per window, refilling continuously.
func UploadLimiterMiddleware(requests int, window time.Duration) echo.MiddlewareFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		limiter, ok := limiters[ip]
		if !ok {
			limiter = rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
			limiters[ip] = limiter
		}
		return limiter
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := traffic.NormalizeIP(c.RealIP())
			if !limiterFor(ip).Allow() {
				logger.Warn("upload rate limit exceeded", "ip", ip)
				return c.JSON(nethttp.StatusTooManyRequests, map[string]interface{}{
					"status":  "error",
					"message": "too many uploads, please try again later",
				})
			}
			return next(c)
		}
	}
}

// JWTAuthMiddleware validates the bearer token or session cookie and stores
// the claims on the context.
func JWTAuthMiddleware(auth service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return c.JSON(nethttp.StatusUnauthorized, map[string]string{
					"status":  "error",
					"message": "authentication required",
				})
			}

			claims, err := auth.ValidateToken(token)
			if err != nil {
				return c.JSON(nethttp.StatusUnauthorized, map[string]string{
					"status":  "error",
					"message": "invalid or expired token",
				})
			}

			handler.SetCurrentUser(c, claims)
			return next(c)
		}
	}
}

// RequireRole rejects authenticated requests whose role is not in the allow
// list. It must run after JWTAuthMiddleware.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := handler.CurrentUser(c)
			if claims == nil {
				return c.JSON(nethttp.StatusUnauthorized, map[string]string{
					"status":  "error",
					"message": "authentication required",
				})
			}
			if !allowed[claims.Role] {
				logger.Warn("role denied", "username", claims.Username, "role", claims.Role, "path", c.Path())
				return c.JSON(nethttp.StatusForbidden, map[string]string{
					"status":  "error",
					"message": "forbidden",
				})
			}
			return next(c)
		}
	}
}

// RequestLoggerMiddleware logs one line per request with latency and status.
func RequestLoggerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []interface{}{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"ip", c.RealIP(),
				"latency", time.Since(start).String(),
			}

			switch {
			case status >= 500:
				logger.Error("request", fields...)
			case status >= 400:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		}
	}
}

func extractToken(c echo.Context) string {
	authz := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	if cookie, err := c.Cookie(AuthCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
