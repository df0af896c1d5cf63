package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/jhoicas/tutorlab-api/internal/application/auth"
	"github.com/jhoicas/tutorlab-api/internal/application/usecase"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/ws"
	"github.com/jhoicas/tutorlab-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC          *auth.AuthUseCase
	UserUC          *usecase.UserUseCase
	Guard           *auth.Guard
	Hub             *ws.Hub
	Log             *logger.Logger
	CookieSecure    bool
	LoginRateLimit  int // intentos por minuto e IP; 0 desactiva el límite
	LocalizationDir string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	api.Get("/ping", Ping)

	anyRole := RequireAnyRole(deps.Guard)
	adminOnly := RequireRoles(deps.Guard, entity.RoleUserAdmin)

	// Auth
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC, deps.CookieSecure)
	if deps.LoginRateLimit > 0 {
		authGroup.Post("/token", limiter.New(limiter.Config{
			Max:        deps.LoginRateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "demasiados intentos de inicio de sesión")
			},
		}), authHandler.Token)
	} else {
		authGroup.Post("/token", authHandler.Token)
	}
	authGroup.Post("/logout", anyRole, authHandler.Logout)
	authGroup.Get("/users/me", anyRole, authHandler.Me)

	// Users
	users := api.Group("/users")
	userHandler := NewUserHandler(deps.UserUC)
	users.Get("/", anyRole, userHandler.List)
	users.Get("/all-roles", anyRole, userHandler.AllRoles)
	users.Get("/:id", anyRole, userHandler.GetByID)
	users.Post("/", adminOnly, userHandler.Create)
	users.Patch("/:id", anyRole, userHandler.Update)
	users.Delete("/:id", adminOnly, userHandler.Delete)
	users.Post("/:id/roles", adminOnly, userHandler.GrantRoles)
	users.Delete("/:id/roles", adminOnly, userHandler.RevokeRoles)
	users.Patch("/:id/password", anyRole, userHandler.ChangePassword)

	// Localization
	locHandler := NewLocalizationHandler(deps.LocalizationDir)
	api.Get("/localization/:lang", anyRole, locHandler.Get)

	// WebSocket
	wsHandler := NewWSHandler(deps.Hub, deps.Log)
	api.Get("/ws", wsHandler.Upgrade(deps.Guard), wsHandler.Serve())
}
