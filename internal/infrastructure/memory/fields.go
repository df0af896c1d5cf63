package memory

import (
	"fmt"

	"github.com/jhoicas/tutorlab-api/internal/domain"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
)

// apply copia fields sobre u validando tipos.
func apply(u *entity.User, fields repository.Fields) error {
	for _, k := range repository.SortedKeys(fields) {
		v := fields[k]
		var err error
		switch k {
		case repository.UserID:
			return fmt.Errorf("%w: id es inmutable", domain.ErrInvalidInput)
		case repository.UserUsername:
			u.Username, err = asString(k, v)
		case repository.UserFullName:
			u.FullName, err = asOptionalString(k, v)
		case repository.UserEmail:
			u.Email, err = asString(k, v)
		case repository.UserPasswordHash:
			u.PasswordHash, err = asString(k, v)
		case repository.UserDisabled:
			b, ok := v.(bool)
			if !ok {
				err = typeError(k, v)
			}
			u.Disabled = b
		case repository.UserRoles:
			u.Roles, err = asRoles(k, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// matches evalúa el filtro de igualdades sobre u.
func matches(u *entity.User, filter repository.Filter) (bool, error) {
	for k, v := range filter {
		switch k {
		case repository.UserID:
			id, err := asInt64(k, v)
			if err != nil {
				return false, err
			}
			if u.ID != id {
				return false, nil
			}
		case repository.UserDisabled:
			b, ok := v.(bool)
			if !ok {
				return false, typeError(k, v)
			}
			if u.Disabled != b {
				return false, nil
			}
		case repository.UserRoles:
			return false, fmt.Errorf("%w: no se filtra por roles", domain.ErrInvalidInput)
		default:
			s, err := asOptionalString(k, v)
			if err != nil {
				return false, err
			}
			if stringField(u, k) != s {
				return false, nil
			}
		}
	}
	return true, nil
}

func stringField(u *entity.User, k string) string {
	switch k {
	case repository.UserUsername:
		return u.Username
	case repository.UserFullName:
		return u.FullName
	case repository.UserEmail:
		return u.Email
	case repository.UserPasswordHash:
		return u.PasswordHash
	}
	return ""
}

func typeError(k string, v any) error {
	return fmt.Errorf("%w: tipo %T no válido para %s", domain.ErrInvalidInput, v, k)
}

func asString(k string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", typeError(k, v)
	}
	return s, nil
}

func asOptionalString(k string, v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case *string:
		if s == nil {
			return "", nil
		}
		return *s, nil
	}
	return "", typeError(k, v)
}

func asInt64(k string, v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	}
	return 0, typeError(k, v)
}

func asRoles(k string, v any) ([]entity.Role, error) {
	switch rs := v.(type) {
	case []entity.Role:
		return append([]entity.Role{}, rs...), nil
	case []string:
		out := make([]entity.Role, 0, len(rs))
		for _, r := range rs {
			out = append(out, entity.Role(r))
		}
		return out, nil
	}
	return nil, typeError(k, v)
}
