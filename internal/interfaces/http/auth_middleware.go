package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/tutorlab-api/internal/application/auth"
	"github.com/jhoicas/tutorlab-api/internal/domain"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/metrics"
)

// Cookie y locals de la sesión autenticada.
const (
	CookieAccessToken = "access_token"
	LocalUser         = "user"
)

// RequireRoles lee la cookie access_token, resuelve el usuario y exige cuenta activa y al menos
// uno de los roles indicados. El usuario queda en c.Locals(LocalUser).
func RequireRoles(guard *auth.Guard, roles ...entity.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := guard.Require(c.UserContext(), c.Cookies(CookieAccessToken), roles...)
		if err != nil {
			metrics.AccessDeniedTotal.WithLabelValues(deniedReason(err)).Inc()
			return err
		}
		c.Locals(LocalUser, user)
		return c.Next()
	}
}

// RequireAnyRole atajo para rutas abiertas a cualquier rol.
func RequireAnyRole(guard *auth.Guard) fiber.Handler {
	return RequireRoles(guard, entity.AllRoles()...)
}

// GetUser devuelve el usuario autenticado (después de RequireRoles) o nil.
func GetUser(c *fiber.Ctx) *entity.User {
	u, _ := c.Locals(LocalUser).(*entity.User)
	return u
}

func deniedReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingCredential):
		return "missing"
	case errors.Is(err, domain.ErrInactiveUser):
		return "inactive"
	case errors.Is(err, domain.ErrInsufficientRole):
		return "role"
	case errors.Is(err, domain.ErrUnauthorized):
		return "invalid"
	}
	return "error"
}
