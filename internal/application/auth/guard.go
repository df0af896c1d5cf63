package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/tutorlab-api/internal/application/uow"
	"github.com/jhoicas/tutorlab-api/internal/domain"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
)

// TokenVerifier verifica un token y devuelve su sujeto.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Guard resuelve credenciales a usuarios y aplica la comprobación de roles.
// Lo comparten la superficie HTTP (cookie por petición) y la websocket (cookie en el handshake).
type Guard struct {
	tokens TokenVerifier
	newUoW uow.Factory
}

// NewGuard construye el guard.
func NewGuard(tokens TokenVerifier, newUoW uow.Factory) *Guard {
	return &Guard{tokens: tokens, newUoW: newUoW}
}

// IsAbsent vacío o el marcador literal "null" equivalen a no tener credencial.
func IsAbsent(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "" || strings.EqualFold(raw, "null")
}

// Authenticate verifica el token y carga su usuario en un ámbito propio.
// No comprueba si la cuenta está activa: eso es parte de Authorize.
func (g *Guard) Authenticate(ctx context.Context, raw string) (*entity.User, error) {
	if IsAbsent(raw) {
		return nil, domain.ErrMissingCredential
	}
	subject, err := g.tokens.Verify(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	user, err := uow.Query(ctx, g.newUoW, func(u *uow.UnitOfWork) (*entity.User, error) {
		return u.Users().FindOne(ctx, repository.Filter{repository.UserUsername: subject})
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: usuario del token inexistente", domain.ErrUnauthorized)
		}
		return nil, err
	}
	return user, nil
}

// Authorize exige cuenta activa y al menos uno de required (any-of). Devuelve user sin cambios.
func Authorize(user *entity.User, required ...entity.Role) (*entity.User, error) {
	if !user.Active() {
		return nil, domain.ErrInactiveUser
	}
	if !user.HasAnyRole(required...) {
		return nil, domain.ErrInsufficientRole
	}
	return user, nil
}

// Require Authenticate seguido de Authorize.
func (g *Guard) Require(ctx context.Context, raw string, required ...entity.Role) (*entity.User, error) {
	user, err := g.Authenticate(ctx, raw)
	if err != nil {
		return nil, err
	}
	return Authorize(user, required...)
}
