package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jhoicas/tutorlab-api/internal/domain"
)

// ErrMultipleResults FindOne encontró más de una fila; el filtro debe usar una clave única.
var ErrMultipleResults = errors.New("el filtro coincide con más de un registro")

// Filter conjunto de predicados de igualdad columna = valor (AND).
type Filter map[string]any

// Fields valores parciales para Add/Edit.
type Fields map[string]any

// Repository contrato CRUD genérico sobre un tipo de entidad persistida.
//
// FindOne falla con *domain.NotFoundError si no hay coincidencias y con ErrMultipleResults si hay
// varias. Edit y DeleteOne fallan con NotFound si no existe la fila. DeleteBatch no falla con cero
// coincidencias. Add y Edit propagan *domain.ConstraintError ante una violación de unicidad.
type Repository[T any] interface {
	Add(ctx context.Context, fields Fields) (int64, error)
	FindOne(ctx context.Context, filter Filter) (*T, error)
	FindAll(ctx context.Context, filter Filter) ([]*T, error)
	Exists(ctx context.Context, filter Filter) (bool, error)
	Edit(ctx context.Context, id int64, fields Fields) (int64, error)
	DeleteOne(ctx context.Context, filter Filter) error
	DeleteBatch(ctx context.Context, filter Filter) error
}

// SortedKeys devuelve las claves del mapa ordenadas (consultas deterministas).
func SortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CheckColumns valida que todas las claves pertenezcan a allowed.
func CheckColumns[M ~map[string]any](m M, allowed map[string]bool) error {
	for k := range m {
		if !allowed[k] {
			return fmt.Errorf("%w: columna desconocida %q", domain.ErrInvalidInput, k)
		}
	}
	return nil
}
