// Package uow implementa la unidad de trabajo: un ámbito transaccional acotado que posee una
// sesión de almacenamiento y los repositorios ligados a ella.
//
// Estados: Idle -> Active -> Closed. Exit siempre deshace lo no confirmado y libera la sesión.
package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
)

// ErrInvalidState transición no permitida por la máquina de estados.
var ErrInvalidState = errors.New("uow: transición de estado inválida")

// State estado del ámbito.
type State int

const (
	Idle State = iota
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Factory crea ámbitos nuevos. Cada operación lógica usa el suyo.
type Factory func() *UnitOfWork

// NewFactory factory sobre un backend.
func NewFactory(sessions repository.SessionFactory) Factory {
	return func() *UnitOfWork { return New(sessions) }
}

// UnitOfWork no es seguro para uso concurrente; pertenece a la llamada que lo abrió.
type UnitOfWork struct {
	sessions repository.SessionFactory
	session  repository.Session
	state    State
}

// New ámbito en estado Idle.
func New(sessions repository.SessionFactory) *UnitOfWork {
	return &UnitOfWork{sessions: sessions}
}

// State estado actual.
func (u *UnitOfWork) State() State { return u.state }

// Enter Idle -> Active: abre la sesión.
func (u *UnitOfWork) Enter(ctx context.Context) error {
	if u.state != Idle {
		return fmt.Errorf("%w: enter desde %s", ErrInvalidState, u.state)
	}
	s, err := u.sessions.Begin(ctx)
	if err != nil {
		u.state = Closed
		return fmt.Errorf("abrir sesión: %w", err)
	}
	u.session = s
	u.state = Active
	return nil
}

// Users repositorio de usuarios del ámbito. Fuera de Active todas sus operaciones fallan.
func (u *UnitOfWork) Users() repository.UserRepository {
	if u.state != Active {
		return inactiveUsers{}
	}
	return u.session.Users()
}

// Commit persiste lo hecho desde Enter. No cambia el estado.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.state != Active {
		return fmt.Errorf("%w: commit en %s", ErrInvalidState, u.state)
	}
	if err := u.session.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback descarta cambios no confirmados.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.state != Active {
		return fmt.Errorf("%w: rollback en %s", ErrInvalidState, u.state)
	}
	if err := u.session.Rollback(ctx); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// Exit deshace y libera la sesión; deja el ámbito en Closed. Idempotente.
// Usa un contexto no cancelable para que la liberación ocurra aunque ctx ya haya expirado.
func (u *UnitOfWork) Exit(ctx context.Context) error {
	if u.state != Active {
		u.state = Closed
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	rbErr := u.session.Rollback(ctx)
	closeErr := u.session.Close(ctx)
	u.state = Closed
	u.session = nil
	if rbErr != nil || closeErr != nil {
		return fmt.Errorf("exit: %w", errors.Join(rbErr, closeErr))
	}
	return nil
}

// Run abre un ámbito, ejecuta fn y lo cierra en todo camino de salida (retorno, error o pánico).
// fn decide cuándo confirmar.
func Run(ctx context.Context, newUoW Factory, fn func(u *UnitOfWork) error) (err error) {
	u := newUoW()
	if err := u.Enter(ctx); err != nil {
		return err
	}
	defer func() {
		if exitErr := u.Exit(ctx); exitErr != nil && err == nil {
			err = exitErr
		}
	}()
	return fn(u)
}

// Query atajo de Run para lecturas que devuelven un valor.
func Query[T any](ctx context.Context, newUoW Factory, fn func(u *UnitOfWork) (T, error)) (T, error) {
	var out T
	err := Run(ctx, newUoW, func(u *UnitOfWork) error {
		var err error
		out, err = fn(u)
		return err
	})
	return out, err
}

type inactiveUsers struct{}

func (inactiveUsers) Add(context.Context, repository.Fields) (int64, error) {
	return 0, repository.ErrScopeNotActive
}
func (inactiveUsers) FindOne(context.Context, repository.Filter) (*entity.User, error) {
	return nil, repository.ErrScopeNotActive
}
func (inactiveUsers) FindOneForUpdate(context.Context, repository.Filter) (*entity.User, error) {
	return nil, repository.ErrScopeNotActive
}
func (inactiveUsers) FindAll(context.Context, repository.Filter) ([]*entity.User, error) {
	return nil, repository.ErrScopeNotActive
}
func (inactiveUsers) Exists(context.Context, repository.Filter) (bool, error) {
	return false, repository.ErrScopeNotActive
}
func (inactiveUsers) Edit(context.Context, int64, repository.Fields) (int64, error) {
	return 0, repository.ErrScopeNotActive
}
func (inactiveUsers) DeleteOne(context.Context, repository.Filter) error {
	return repository.ErrScopeNotActive
}
func (inactiveUsers) DeleteBatch(context.Context, repository.Filter) error {
	return repository.ErrScopeNotActive
}
