package middleware

import (
	"github.com/framehire/framehire-backend/internal/cache"
	"github.com/framehire/framehire-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// RateLimit throttles by client IP through the injected limiter, so the
// window is shared across instances when the limiter runs on Redis.
func RateLimit(limiter *cache.Limiter, scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !limiter.Allow(c.UserContext(), scope+":"+c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error: true, Message: "Too many requests, slow down",
			})
		}
		return c.Next()
	}
}
