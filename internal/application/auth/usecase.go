package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/tutorlab-api/internal/application/dto"
	"github.com/jhoicas/tutorlab-api/internal/application/uow"
	"github.com/jhoicas/tutorlab-api/internal/domain"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
	"github.com/jhoicas/tutorlab-api/pkg/hasher"
	"github.com/jhoicas/tutorlab-api/pkg/logger"
)

// TokenIssuer firma tokens para un sujeto.
type TokenIssuer interface {
	Issue(subject string) (string, time.Time, error)
}

// AuthUseCase login y logout. No existe sesión en servidor: el token es el único artefacto.
type AuthUseCase struct {
	newUoW uow.Factory
	hasher hasher.Hasher
	tokens TokenIssuer
	log    *logger.Logger
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(newUoW uow.Factory, h hasher.Hasher, tokens TokenIssuer, log *logger.Logger) *AuthUseCase {
	return &AuthUseCase{newUoW: newUoW, hasher: h, tokens: tokens, log: log.Component("auth")}
}

// Login busca un usuario activo por username, verifica la contraseña y emite el token.
// Usuario inexistente, inactivo o contraseña incorrecta producen el mismo ErrInvalidCredentials.
func (uc *AuthUseCase) Login(ctx context.Context, username, password string) (*dto.TokenResponse, error) {
	user, err := uow.Query(ctx, uc.newUoW, func(u *uow.UnitOfWork) (*entity.User, error) {
		return u.Users().FindOne(ctx, repository.Filter{
			repository.UserUsername: username,
			repository.UserDisabled: false,
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !uc.hasher.Matches(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	token, exp, err := uc.tokens.Issue(user.Username)
	if err != nil {
		return nil, err
	}
	uc.log.Info().Int64("user_id", user.ID).Msg("login correcto")
	return &dto.TokenResponse{AccessToken: token, TokenType: "bearer", ExpiresAt: exp}, nil
}

// Logout solo registra el evento: el token sigue siendo válido hasta su exp y es el cliente
// quien lo descarta (no hay lista de revocación).
func (uc *AuthUseCase) Logout(_ context.Context, user *entity.User) {
	uc.log.Info().Int64("user_id", user.ID).Msg("logout")
}
