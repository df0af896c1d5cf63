package repository

import (
	"context"
	"errors"
)

// ErrScopeNotActive uso de repositorios fuera de un ámbito activo.
var ErrScopeNotActive = errors.New("unidad de trabajo no activa")

// Session capacidad mínima que un backend de almacenamiento ofrece a la unidad de trabajo.
// Commit y Rollback no cierran la sesión; la siguiente operación abre una transacción nueva.
// Close descarta lo no confirmado y libera la conexión; tras Close los repositorios fallan con
// ErrScopeNotActive.
type Session interface {
	Users() UserRepository
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

// SessionFactory abre sesiones nuevas (una por ámbito).
type SessionFactory interface {
	Begin(ctx context.Context) (Session, error)
}
