package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrForbidden           = errors.New("acceso denegado")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrDatabaseUnavailable = errors.New("base de datos no disponible")
)

// Variantes con motivo. Todas responden a errors.Is con su sentinel base.
var (
	ErrMissingCredential  = fmt.Errorf("%w: credencial ausente", ErrUnauthorized)
	ErrInvalidCredentials = fmt.Errorf("%w: usuario o contraseña incorrectos", ErrUnauthorized)
	ErrInactiveUser       = fmt.Errorf("%w: usuario inactivo", ErrForbidden)
	ErrInsufficientRole   = fmt.Errorf("%w: rol insuficiente", ErrForbidden)
	ErrNotOwner           = fmt.Errorf("%w: solo el propio usuario o un administrador", ErrForbidden)
)

// NotFoundError indica que no existe la entidad buscada.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return fmt.Sprintf("%s no encontrado", e.Entity)
	}
	return fmt.Sprintf("%s %v no encontrado", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConstraintError envuelve una violación de restricción de la base (unicidad, etc.).
// Detail conserva el mensaje crudo del motor.
type ConstraintError struct {
	Detail string
}

func (e *ConstraintError) Error() string {
	return "violación de restricción: " + e.Detail
}

func (e *ConstraintError) Unwrap() error { return ErrConflict }
