// Package memory implementa el backend de almacenamiento en proceso.
//
// Cada sesión toma el candado del almacén al abrirse y lo libera al cerrarse, así que los
// ámbitos son serializables. Las escrituras se hacen sobre una copia de trabajo que Commit publica
// y Rollback descarta.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
)

var _ repository.SessionFactory = (*Store)(nil)

// Store datos confirmados.
type Store struct {
	sem chan struct{}

	mu     sync.Mutex // protege users y nextID
	users  map[int64]entity.User
	nextID int64
	now    func() time.Time
}

// NewStore almacén vacío.
func NewStore() *Store {
	return &Store{
		sem:   make(chan struct{}, 1),
		users: make(map[int64]entity.User),
		now:   time.Now,
	}
}

// Begin espera el candado del almacén (respetando ctx) y abre una sesión.
func (s *Store) Begin(ctx context.Context) (repository.Session, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	sess := &Session{store: s}
	sess.reset()
	sess.users = &UserRepo{s: sess}
	return sess, nil
}

// Ping siempre disponible.
func (s *Store) Ping(context.Context) error { return nil }

func cloneUsers(src map[int64]entity.User) map[int64]entity.User {
	out := maps.Clone(src)
	if out == nil {
		out = make(map[int64]entity.User)
	}
	for id, u := range out {
		u.Roles = append([]entity.Role(nil), u.Roles...)
		out[id] = u
	}
	return out
}

// Session ámbito abierto sobre el almacén. No es seguro para uso concurrente.
type Session struct {
	store  *Store
	work   map[int64]entity.User
	nextID int64
	closed bool
	users  *UserRepo
}

var _ repository.Session = (*Session)(nil)

func (s *Session) reset() {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.work = cloneUsers(s.store.users)
	s.nextID = s.store.nextID
}

// Users repositorio ligado a la sesión.
func (s *Session) Users() repository.UserRepository { return s.users }

// Commit publica la copia de trabajo.
func (s *Session) Commit(context.Context) error {
	if s.closed {
		return repository.ErrScopeNotActive
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.users = cloneUsers(s.work)
	s.store.nextID = s.nextID
	return nil
}

// Rollback descarta lo no confirmado.
func (s *Session) Rollback(context.Context) error {
	if s.closed {
		return repository.ErrScopeNotActive
	}
	s.reset()
	return nil
}

// Close descarta lo no confirmado y libera el candado. Idempotente.
func (s *Session) Close(context.Context) error {
	if s.closed {
		return nil
	}
	s.work = nil
	s.closed = true
	<-s.store.sem
	return nil
}
