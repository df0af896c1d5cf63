package entity

import (
	"fmt"
	"slices"
	"time"
)

// Role etiqueta de permiso. El conjunto es cerrado.
type Role string

// Roles válidos para User.
const (
	RoleUserAdmin Role = "USER_ADMIN"
	RoleTutor     Role = "TUTOR"
	RoleStudent   Role = "STUDENT"
)

// AllRoles devuelve la enumeración completa en orden estable.
func AllRoles() []Role {
	return []Role{RoleUserAdmin, RoleTutor, RoleStudent}
}

// Valid indica si r pertenece a la enumeración.
func (r Role) Valid() bool {
	return slices.Contains(AllRoles(), r)
}

// ParseRole convierte el valor de cable en Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("rol desconocido %q", s)
	}
	return r, nil
}

// User representa una cuenta del sistema.
type User struct {
	ID           int64
	Username     string
	FullName     string // vacío = NULL
	Email        string
	PasswordHash string
	Disabled     bool
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active indica si la cuenta puede operar.
func (u *User) Active() bool { return !u.Disabled }

// HasAnyRole es verdadero si la intersección entre los roles del usuario y required no es vacía.
func (u *User) HasAnyRole(required ...Role) bool {
	for _, r := range required {
		if slices.Contains(u.Roles, r) {
			return true
		}
	}
	return false
}

// IsUserAdmin atajo para el rol administrativo.
func (u *User) IsUserAdmin() bool { return u.HasAnyRole(RoleUserAdmin) }

// UnionRoles devuelve a ∪ b ordenado y sin duplicados.
func UnionRoles(a, b []Role) []Role {
	out := make([]Role, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return normalizeRoles(out)
}

// DifferenceRoles devuelve a \ b ordenado y sin duplicados.
func DifferenceRoles(a, b []Role) []Role {
	out := make([]Role, 0, len(a))
	for _, r := range a {
		if !slices.Contains(b, r) {
			out = append(out, r)
		}
	}
	return normalizeRoles(out)
}

func normalizeRoles(rs []Role) []Role {
	slices.Sort(rs)
	return slices.Compact(rs)
}
