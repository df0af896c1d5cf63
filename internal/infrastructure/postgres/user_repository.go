package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/tutorlab-api/internal/domain"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

const userSelect = `
	SELECT id, username, fullname, email, hashed_password, disabled, roles, created_at, updated_at
	FROM user_accounts`

// UserRepo implementación del puerto UserRepository sobre la transacción de una sesión.
type UserRepo struct {
	q func(ctx context.Context) (Querier, error)
}

// Add inserta y devuelve el id generado.
func (r *UserRepo) Add(ctx context.Context, fields repository.Fields) (int64, error) {
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: insert sin columnas", domain.ErrInvalidInput)
	}
	if _, ok := fields[repository.UserID]; ok {
		return 0, fmt.Errorf("%w: id lo asigna el almacenamiento", domain.ErrInvalidInput)
	}
	cols, args, err := assignments(fields)
	if err != nil {
		return 0, err
	}
	q, err := r.q(ctx)
	if err != nil {
		return 0, err
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO user_accounts (%s) VALUES (%s) RETURNING id`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	var id int64
	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, mapError("insert user", err)
	}
	return id, nil
}

// FindOne exactamente una coincidencia.
func (r *UserRepo) FindOne(ctx context.Context, filter repository.Filter) (*entity.User, error) {
	return r.findOne(ctx, filter, "")
}

// FindOneForUpdate bloquea la fila hasta el fin de la transacción.
func (r *UserRepo) FindOneForUpdate(ctx context.Context, filter repository.Filter) (*entity.User, error) {
	return r.findOne(ctx, filter, " FOR UPDATE")
}

func (r *UserRepo) findOne(ctx context.Context, filter repository.Filter, lock string) (*entity.User, error) {
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return nil, err
	}
	users, err := r.query(ctx, userSelect+where+" ORDER BY id LIMIT 2"+lock, args...)
	if err != nil {
		return nil, err
	}
	switch len(users) {
	case 0:
		return nil, &domain.NotFoundError{Entity: "user", ID: describe(filter)}
	case 1:
		return users[0], nil
	default:
		return nil, repository.ErrMultipleResults
	}
}

// FindAll coincidencias ordenadas por id.
func (r *UserRepo) FindAll(ctx context.Context, filter repository.Filter) ([]*entity.User, error) {
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, userSelect+where+" ORDER BY id", args...)
}

// Exists verdadero si al menos una fila coincide.
func (r *UserRepo) Exists(ctx context.Context, filter repository.Filter) (bool, error) {
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return false, err
	}
	q, err := r.q(ctx)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_accounts`+where+`)`, args...).Scan(&ok); err != nil {
		return false, mapError("exists user", err)
	}
	return ok, nil
}

// Edit actualización parcial por id.
func (r *UserRepo) Edit(ctx context.Context, id int64, fields repository.Fields) (int64, error) {
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: update sin columnas", domain.ErrInvalidInput)
	}
	if _, ok := fields[repository.UserID]; ok {
		return 0, fmt.Errorf("%w: id es inmutable", domain.ErrInvalidInput)
	}
	cols, args, err := assignments(fields)
	if err != nil {
		return 0, err
	}
	sets := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+1))
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE user_accounts SET %s WHERE id = $%d RETURNING id`, strings.Join(sets, ", "), len(args))

	q, err := r.q(ctx)
	if err != nil {
		return 0, err
	}
	var got int64
	if err := q.QueryRow(ctx, query, args...).Scan(&got); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &domain.NotFoundError{Entity: "user", ID: id}
		}
		return 0, mapError("update user", err)
	}
	return got, nil
}

// DeleteOne borra la única fila que coincide.
func (r *UserRepo) DeleteOne(ctx context.Context, filter repository.Filter) error {
	u, err := r.findOne(ctx, filter, " FOR UPDATE")
	if err != nil {
		return err
	}
	q, err := r.q(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `DELETE FROM user_accounts WHERE id = $1`, u.ID)
	if err != nil {
		return mapError("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{Entity: "user", ID: u.ID}
	}
	return nil
}

// DeleteBatch borra todas las coincidencias; cero filas no es error.
func (r *UserRepo) DeleteBatch(ctx context.Context, filter repository.Filter) error {
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return err
	}
	q, err := r.q(ctx)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, `DELETE FROM user_accounts`+where, args...); err != nil {
		return mapError("delete users", err)
	}
	return nil
}

func (r *UserRepo) query(ctx context.Context, sql string, args ...any) ([]*entity.User, error) {
	q, err := r.q(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError("select users", err)
	}
	defer rows.Close()

	out := make([]*entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapError("scan user", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("select users", err)
	}
	return out, nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var (
		u         entity.User
		fullname  *string
		roles     []string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&u.ID, &u.Username, &fullname, &u.Email, &u.PasswordHash, &u.Disabled, &roles, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if fullname != nil {
		u.FullName = *fullname
	}
	u.Roles = make([]entity.Role, 0, len(roles))
	for _, r := range roles {
		u.Roles = append(u.Roles, entity.Role(r))
	}
	u.CreatedAt = createdAt
	u.UpdatedAt = updatedAt
	return &u, nil
}
