package repository

import (
	"context"

	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
)

// Columnas de user_accounts usables en Filter y Fields.
const (
	UserID           = "id"
	UserUsername     = "username"
	UserFullName     = "fullname"
	UserEmail        = "email"
	UserPasswordHash = "hashed_password"
	UserDisabled     = "disabled"
	UserRoles        = "roles"
)

// UserColumns conjunto permitido de columnas.
var UserColumns = map[string]bool{
	UserID:           true,
	UserUsername:     true,
	UserFullName:     true,
	UserEmail:        true,
	UserPasswordHash: true,
	UserDisabled:     true,
	UserRoles:        true,
}

// UserRepository define el puerto de persistencia para User.
type UserRepository interface {
	Repository[entity.User]
	// FindOneForUpdate como FindOne pero bloquea la fila hasta el fin de la transacción.
	FindOneForUpdate(ctx context.Context, filter Filter) (*entity.User, error)
}
