package middleware

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// RateLimit bounds the request rate across the process. The portal sits
// behind a CDN, so a single token bucket is enough back-pressure.
func RateLimit(perSecond float64, burst int) fiber.Handler {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(c *fiber.Ctx) error {
		if !limiter.Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "RATE_LIMITED",
					"message": "Too many requests",
				},
			})
		}
		return c.Next()
	}
}
