package dto

import (
	"time"

	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
)

// CreateUserRequest alta de usuario. La cuenta nace sin roles.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=1,max=30"`
	FullName string `json:"fullname" validate:"omitempty,max=30"`
	Email    string `json:"email" validate:"required,email,max=30"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UpdateUserRequest actualización parcial; los campos nil no cambian.
type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=1,max=30"`
	FullName *string `json:"fullname" validate:"omitempty,max=30"`
	Email    *string `json:"email" validate:"omitempty,email,max=30"`
}

// Empty verdadero si no hay ningún campo que actualizar.
func (r UpdateUserRequest) Empty() bool {
	return r.Username == nil && r.FullName == nil && r.Email == nil
}

// RolesRequest roles a otorgar o revocar. Solo valores de la enumeración cerrada.
type RolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,oneof=USER_ADMIN TUTOR STUDENT"`
}

// ChangePasswordRequest nueva contraseña.
type ChangePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserResponse salida de un usuario (sin digest).
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullname,omitempty"`
	Email     string    `json:"email"`
	Disabled  bool      `json:"disabled"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserResponse proyecta la entidad.
func NewUserResponse(u *entity.User) UserResponse {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		Email:     u.Email,
		Disabled:  u.Disabled,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// IDResponse id afectado por una escritura.
type IDResponse struct {
	ID int64 `json:"id"`
}

// LoginRequest credenciales; se aceptan como formulario o JSON.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=30"`
	Password string `json:"password" form:"password" validate:"required"`
}

// TokenResponse token emitido en el login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
