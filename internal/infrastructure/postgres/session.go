package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/metrics"
)

var (
	_ repository.SessionFactory = (*SessionFactory)(nil)
	_ repository.Session        = (*Session)(nil)
)

// Querier subconjunto de pgx.Tx que usan los repositorios.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionFactory abre una sesión por ámbito sobre el pool.
type SessionFactory struct {
	pool *pgxpool.Pool
}

// NewSessionFactory construye la factoría con el pool.
func NewSessionFactory(pool *pgxpool.Pool) *SessionFactory {
	return &SessionFactory{pool: pool}
}

// Begin reserva una conexión del pool para el ámbito. La transacción se abre en el primer uso.
func (f *SessionFactory) Begin(ctx context.Context) (repository.Session, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire conn: %w", err)
	}
	s := &Session{conn: conn}
	s.users = &UserRepo{q: s.querier}
	return s, nil
}

// Session conexión reservada más la transacción en curso (si la hay).
// Tras Commit o Rollback la siguiente consulta abre otra transacción en la misma conexión.
type Session struct {
	conn   *pgxpool.Conn
	tx     pgx.Tx
	closed bool
	users  *UserRepo
}

func (s *Session) querier(ctx context.Context) (Querier, error) {
	if s.closed {
		return nil, repository.ErrScopeNotActive
	}
	if s.tx == nil {
		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}
		s.tx = tx
	}
	return s.tx, nil
}

// Users repositorio atado a la sesión.
func (s *Session) Users() repository.UserRepository { return s.users }

// Commit confirma la transacción en curso; sin transacción no hay nada que confirmar.
func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return repository.ErrScopeNotActive
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(ctx); err != nil {
		metrics.TransactionsTotal.WithLabelValues("rollback").Inc()
		return mapError("commit transaction", err)
	}
	metrics.TransactionsTotal.WithLabelValues("commit").Inc()
	return nil
}

// Rollback descarta la transacción en curso.
func (s *Session) Rollback(ctx context.Context) error {
	if s.closed {
		return repository.ErrScopeNotActive
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	metrics.TransactionsTotal.WithLabelValues("rollback").Inc()
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// Close deshace lo pendiente y devuelve la conexión al pool. Idempotente.
// Una conexión que quedó dentro de una transacción la destruye el propio pool al liberarla.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	err := s.Rollback(ctx)
	s.closed = true
	s.conn.Release()
	return err
}
