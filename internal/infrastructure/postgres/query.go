package postgres

import (
	"fmt"
	"strings"

	"github.com/jhoicas/tutorlab-api/internal/domain"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
)

// buildWhere genera " WHERE a = $n AND ..." con las claves en orden estable.
// Los nombres de columna provienen de repository.UserColumns, nunca del llamador.
func buildWhere(filter repository.Filter, start int) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	if err := repository.CheckColumns(filter, repository.UserColumns); err != nil {
		return "", nil, err
	}
	conds := make([]string, 0, len(filter))
	args := make([]any, 0, len(filter))
	for _, k := range repository.SortedKeys(filter) {
		if k == repository.UserRoles {
			return "", nil, fmt.Errorf("%w: no se filtra por roles", domain.ErrInvalidInput)
		}
		v := filter[k]
		if v == nil {
			conds = append(conds, k+" IS NULL")
			continue
		}
		args = append(args, dbValue(k, v))
		conds = append(conds, fmt.Sprintf("%s = $%d", k, start+len(args)-1))
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// assignments columnas y valores para INSERT/UPDATE en orden estable.
func assignments(fields repository.Fields) ([]string, []any, error) {
	if err := repository.CheckColumns(fields, repository.UserColumns); err != nil {
		return nil, nil, err
	}
	keys := repository.SortedKeys(fields)
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, dbValue(k, fields[k]))
	}
	return keys, args, nil
}

// dbValue adapta valores de dominio a tipos que pgx codifica.
func dbValue(col string, v any) any {
	switch col {
	case repository.UserRoles:
		switch rs := v.(type) {
		case []entity.Role:
			out := make([]string, len(rs))
			for i, r := range rs {
				out[i] = string(r)
			}
			return out
		case nil:
			return []string{}
		}
	case repository.UserFullName:
		if s, ok := v.(string); ok && s == "" {
			return nil
		}
	}
	return v
}

func describe(filter repository.Filter) string {
	parts := make([]string, 0, len(filter))
	for _, k := range repository.SortedKeys(filter) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, filter[k]))
	}
	return strings.Join(parts, ",")
}
