package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"notice/internal/config"
	"notice/internal/metrics"
)

// requestMiddleware stamps a request ID, records metrics, and logs one
// line per request.
func (s *Server) requestMiddleware(c *fiber.Ctx) error {
	start := time.Now()

	reqID := c.Get("X-Request-Id")
	if reqID == "" {
		reqID = uuid.New().String()
	}
	c.Locals("request_id", reqID)

	err := c.Next()

	latency := time.Since(start)
	status := c.Response().StatusCode()
	method := c.Method()
	path := c.Path()

	metrics.RecordRequest(method, path, status, latency.Milliseconds())

	s.logger.Info("request",
		"request_id", reqID,
		"method", method,
		"path", path,
		"status", status,
		"latency_ms", latency.Milliseconds(),
	)

	return err
}

// bearerToken extracts the Authorization bearer token, empty if absent.
func bearerToken(c *fiber.Ctx) string {
	raw := c.Get("Authorization")
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
}

// optionalAuthMiddleware marks the request authenticated when a valid
// token is presented. Missing or invalid tokens yield anonymous access.
func optionalAuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Auth.Enabled && bearerToken(c) == cfg.Auth.Token {
			c.Locals("authenticated", true)
		}
		return c.Next()
	}
}

// requireAuthMiddleware rejects requests without a valid token. A
// disabled auth config leaves the route open.
func requireAuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.Auth.Enabled {
			return c.Next()
		}
		token := bearerToken(c)
		if token == "" || token != cfg.Auth.Token {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:  "missing or invalid bearer token",
				Status: fiber.StatusUnauthorized,
			})
		}
		c.Locals("authenticated", true)
		return c.Next()
	}
}

// rateLimitMiddleware enforces a fixed-window per-minute limit per
// client IP using Redis.
func rateLimitMiddleware(cfg *config.Config, rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.RateLimit.DefaultPerMinute <= 0 {
			return c.Next()
		}

		window := time.Now().UTC().Format("200601021504") // minute window
		key := fmt.Sprintf("notice:rl:%s:%s", c.IP(), window)

		ctx := c.Context()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Best effort: pass through on Redis errors.
			return c.Next()
		}
		if count == 1 {
			_ = rdb.Expire(ctx, key, time.Minute)
		}

		if count > int64(cfg.RateLimit.DefaultPerMinute) {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:  "rate limit exceeded, try again later",
				Status: fiber.StatusTooManyRequests,
			})
		}

		return c.Next()
	}
}
