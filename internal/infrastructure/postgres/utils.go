package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/tutorlab-api/internal/domain"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
)

// isConstraintViolation clase 23 de SQLSTATE (unique, not null, check, fk).
func isConstraintViolation(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return pgErr, true
	}
	return nil, false
}

// mapError traduce errores del driver a errores de dominio.
func mapError(op string, err error) error {
	if pgErr, ok := isConstraintViolation(err); ok {
		detail := pgErr.Message
		if pgErr.Detail != "" {
			detail += ": " + pgErr.Detail
		}
		return &domain.ConstraintError{Detail: detail}
	}
	if errors.Is(err, pgx.ErrTxClosed) {
		return repository.ErrScopeNotActive
	}
	return fmt.Errorf("%s: %w", op, err)
}
