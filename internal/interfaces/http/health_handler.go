package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ReadinessChecker un sondeo de la base.
type ReadinessChecker interface {
	Check(ctx context.Context) bool
}

// HealthHandler liveness y readiness.
type HealthHandler struct {
	service string
	checker ReadinessChecker
}

// NewHealthHandler construye el handler.
func NewHealthHandler(service string, checker ReadinessChecker) *HealthHandler {
	return &HealthHandler{service: service, checker: checker}
}

// Liveness el proceso está vivo.
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "service": h.service})
}

// Readiness sondea la base; 503 si no responde.
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()
	if !h.checker.Check(ctx) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "unavailable",
			"database": "down",
		})
	}
	return c.JSON(fiber.Map{"status": "ok", "database": "up"})
}

// Ping godoc
// @Summary      Ping
// @Tags         health
// @Produce      plain
// @Success      200  {string}  string  "pong"
// @Router       /api/ping [get]
func Ping(c *fiber.Ctx) error {
	return c.SendString("pong")
}
