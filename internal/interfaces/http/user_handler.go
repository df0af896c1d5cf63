package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/tutorlab-api/internal/application/dto"
	"github.com/jhoicas/tutorlab-api/internal/application/usecase"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
)

// UserHandler maneja la administración de usuarios.
type UserHandler struct {
	uc *usecase.UserUseCase
}

// NewUserHandler construye el handler.
func NewUserHandler(uc *usecase.UserUseCase) *UserHandler {
	return &UserHandler{uc: uc}
}

// List godoc
// @Summary      Listar usuarios
// @Tags         users
// @Produce      json
// @Success      200  {array}   dto.UserResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// AllRoles godoc
// @Summary      Enumeración de roles
// @Tags         users
// @Produce      json
// @Success      200  {array}  string
// @Router       /api/users/all-roles [get]
func (h *UserHandler) AllRoles(c *fiber.Ctx) error {
	roles := entity.AllRoles()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener usuario por ID
// @Tags         users
// @Produce      json
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  dto.UserResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetByID(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	out, err := h.uc.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Crear usuario (sin roles)
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateUserRequest  true  "username, email, password"
// @Success      201   {object}  dto.IDResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/users [post]
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateUserRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	id, err := h.uc.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.IDResponse{ID: id})
}

// Update godoc
// @Summary      Actualizar perfil (propio o USER_ADMIN)
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      int                    true  "User ID"
// @Param        body  body      dto.UpdateUserRequest  true  "campos a cambiar"
// @Success      200   {object}  dto.IDResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/users/{id} [patch]
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in dto.UpdateUserRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	got, err := h.uc.Update(c.UserContext(), GetUser(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(dto.IDResponse{ID: got})
}

// Delete godoc
// @Summary      Deshabilitar usuario
// @Tags         users
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  dto.IDResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/{id} [delete]
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	got, err := h.uc.Delete(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.IDResponse{ID: got})
}

// GrantRoles godoc
// @Summary      Otorgar roles
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      int               true  "User ID"
// @Param        body  body      dto.RolesRequest  true  "roles"
// @Success      200   {object}  dto.UserResponse
// @Router       /api/users/{id}/roles [post]
func (h *UserHandler) GrantRoles(c *fiber.Ctx) error {
	return h.mutateRoles(c, h.uc.GrantRoles)
}

// RevokeRoles godoc
// @Summary      Revocar roles
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      int               true  "User ID"
// @Param        body  body      dto.RolesRequest  true  "roles"
// @Success      200   {object}  dto.UserResponse
// @Router       /api/users/{id}/roles [delete]
func (h *UserHandler) RevokeRoles(c *fiber.Ctx) error {
	return h.mutateRoles(c, h.uc.RevokeRoles)
}

type rolesMutation func(ctx context.Context, id int64, roles []entity.Role) (*dto.UserResponse, error)

func (h *UserHandler) mutateRoles(c *fiber.Ctx, fn rolesMutation) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in dto.RolesRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	roles := make([]entity.Role, len(in.Roles))
	for i, r := range in.Roles {
		roles[i] = entity.Role(r)
	}
	out, err := fn(c.UserContext(), id, roles)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// ChangePassword godoc
// @Summary      Cambiar contraseña (propia o USER_ADMIN)
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      int                        true  "User ID"
// @Param        body  body      dto.ChangePasswordRequest  true  "password"
// @Success      200   {object}  dto.IDResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/users/{id}/password [patch]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in dto.ChangePasswordRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	got, err := h.uc.ChangePassword(c.UserContext(), GetUser(c), id, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.IDResponse{ID: got})
}
