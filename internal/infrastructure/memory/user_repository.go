package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jhoicas/tutorlab-api/internal/domain"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

const uniqueUsername = `duplicate key value violates unique constraint "uq_username"`

// UserRepo repositorio de usuarios sobre la copia de trabajo de una sesión.
type UserRepo struct {
	s *Session
}

func (r *UserRepo) active() error {
	if r.s.closed {
		return repository.ErrScopeNotActive
	}
	return nil
}

// Add inserta y devuelve el id asignado.
func (r *UserRepo) Add(_ context.Context, fields repository.Fields) (int64, error) {
	if err := r.active(); err != nil {
		return 0, err
	}
	if err := repository.CheckColumns(fields, repository.UserColumns); err != nil {
		return 0, err
	}
	if _, ok := fields[repository.UserID]; ok {
		return 0, fmt.Errorf("%w: id lo asigna el almacenamiento", domain.ErrInvalidInput)
	}
	u := entity.User{Roles: []entity.Role{}}
	if err := apply(&u, fields); err != nil {
		return 0, err
	}
	for _, col := range []struct{ name, val string }{
		{repository.UserUsername, u.Username},
		{repository.UserEmail, u.Email},
		{repository.UserPasswordHash, u.PasswordHash},
	} {
		if col.val == "" {
			return 0, &domain.ConstraintError{Detail: fmt.Sprintf("null value in column %q violates not-null constraint", col.name)}
		}
	}
	if r.duplicate(0, u.Username) {
		return 0, &domain.ConstraintError{Detail: uniqueUsername}
	}
	r.s.nextID++
	u.ID = r.s.nextID
	u.CreatedAt = r.s.store.now()
	u.UpdatedAt = u.CreatedAt
	r.s.work[u.ID] = u
	return u.ID, nil
}

// FindOne exactamente una coincidencia.
func (r *UserRepo) FindOne(ctx context.Context, filter repository.Filter) (*entity.User, error) {
	all, err := r.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	switch len(all) {
	case 0:
		return nil, &domain.NotFoundError{Entity: "user", ID: describe(filter)}
	case 1:
		return all[0], nil
	default:
		return nil, repository.ErrMultipleResults
	}
}

// FindOneForUpdate el candado del almacén ya serializa los ámbitos.
func (r *UserRepo) FindOneForUpdate(ctx context.Context, filter repository.Filter) (*entity.User, error) {
	return r.FindOne(ctx, filter)
}

// FindAll coincidencias ordenadas por id.
func (r *UserRepo) FindAll(_ context.Context, filter repository.Filter) ([]*entity.User, error) {
	if err := r.active(); err != nil {
		return nil, err
	}
	if err := repository.CheckColumns(filter, repository.UserColumns); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(r.s.work))
	for id := range r.s.work {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]*entity.User, 0)
	for _, id := range ids {
		u := r.s.work[id]
		ok, err := matches(&u, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			cp := u
			cp.Roles = append([]entity.Role(nil), u.Roles...)
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Exists verdadero si hay al menos una coincidencia.
func (r *UserRepo) Exists(ctx context.Context, filter repository.Filter) (bool, error) {
	all, err := r.FindAll(ctx, filter)
	if err != nil {
		return false, err
	}
	return len(all) > 0, nil
}

// Edit actualización parcial por id.
func (r *UserRepo) Edit(_ context.Context, id int64, fields repository.Fields) (int64, error) {
	if err := r.active(); err != nil {
		return 0, err
	}
	if err := repository.CheckColumns(fields, repository.UserColumns); err != nil {
		return 0, err
	}
	u, ok := r.s.work[id]
	if !ok {
		return 0, &domain.NotFoundError{Entity: "user", ID: id}
	}
	u.Roles = append([]entity.Role(nil), u.Roles...)
	if err := apply(&u, fields); err != nil {
		return 0, err
	}
	if u.Username == "" || u.Email == "" || u.PasswordHash == "" {
		return 0, &domain.ConstraintError{Detail: "null value violates not-null constraint"}
	}
	if r.duplicate(id, u.Username) {
		return 0, &domain.ConstraintError{Detail: uniqueUsername}
	}
	u.UpdatedAt = r.s.store.now()
	r.s.work[id] = u
	return id, nil
}

// DeleteOne borra físicamente una fila; NotFound si no hay coincidencia.
func (r *UserRepo) DeleteOne(ctx context.Context, filter repository.Filter) error {
	u, err := r.FindOne(ctx, filter)
	if err != nil {
		return err
	}
	delete(r.s.work, u.ID)
	return nil
}

// DeleteBatch borra todas las coincidencias; cero no es error.
func (r *UserRepo) DeleteBatch(ctx context.Context, filter repository.Filter) error {
	all, err := r.FindAll(ctx, filter)
	if err != nil {
		return err
	}
	for _, u := range all {
		delete(r.s.work, u.ID)
	}
	return nil
}

// duplicate username es único por sí solo, lo que implica también el par (username, email).
func (r *UserRepo) duplicate(self int64, username string) bool {
	for id, other := range r.s.work {
		if id != self && other.Username == username {
			return true
		}
	}
	return false
}

func describe(filter repository.Filter) string {
	parts := make([]string, 0, len(filter))
	for _, k := range repository.SortedKeys(filter) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, filter[k]))
	}
	return strings.Join(parts, ",")
}
