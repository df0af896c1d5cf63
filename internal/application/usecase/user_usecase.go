package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/jhoicas/tutorlab-api/internal/application/dto"
	"github.com/jhoicas/tutorlab-api/internal/application/uow"
	"github.com/jhoicas/tutorlab-api/internal/domain"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
	"github.com/jhoicas/tutorlab-api/pkg/hasher"
	"github.com/jhoicas/tutorlab-api/pkg/logger"
)

// UserUseCase aplica reglas de negocio para usuarios. Cada operación corre en su propio ámbito.
type UserUseCase struct {
	newUoW uow.Factory
	hasher hasher.Hasher
	log    *logger.Logger
}

// NewUserUseCase construye el caso de uso.
func NewUserUseCase(newUoW uow.Factory, h hasher.Hasher, log *logger.Logger) *UserUseCase {
	return &UserUseCase{newUoW: newUoW, hasher: h, log: log.Component("users")}
}

// EnsureCanManage el propio usuario o un USER_ADMIN.
func EnsureCanManage(actor *entity.User, targetID int64) error {
	if actor.ID == targetID || actor.IsUserAdmin() {
		return nil
	}
	return domain.ErrNotOwner
}

// List todos los usuarios, incluidos los deshabilitados.
func (uc *UserUseCase) List(ctx context.Context) ([]dto.UserResponse, error) {
	return uow.Query(ctx, uc.newUoW, func(u *uow.UnitOfWork) ([]dto.UserResponse, error) {
		users, err := u.Users().FindAll(ctx, nil)
		if err != nil {
			return nil, err
		}
		out := make([]dto.UserResponse, 0, len(users))
		for _, usr := range users {
			out = append(out, dto.NewUserResponse(usr))
		}
		return out, nil
	})
}

// GetByID un usuario por id.
func (uc *UserUseCase) GetByID(ctx context.Context, id int64) (*dto.UserResponse, error) {
	return uow.Query(ctx, uc.newUoW, func(u *uow.UnitOfWork) (*dto.UserResponse, error) {
		usr, err := u.Users().FindOne(ctx, repository.Filter{repository.UserID: id})
		if err != nil {
			return nil, err
		}
		out := dto.NewUserResponse(usr)
		return &out, nil
	})
}

// Create alta con roles vacíos. Username repetido o par (username, email) repetido es Conflict.
func (uc *UserUseCase) Create(ctx context.Context, in dto.CreateUserRequest) (int64, error) {
	digest, err := uc.hasher.Hash(in.Password)
	if err != nil {
		return 0, err
	}
	return uow.Query(ctx, uc.newUoW, func(u *uow.UnitOfWork) (int64, error) {
		// uq_username garantiza la unicidad; esta comprobación solo da un mensaje legible
		taken, err := u.Users().Exists(ctx, repository.Filter{repository.UserUsername: in.Username})
		if err != nil {
			return 0, err
		}
		if taken {
			return 0, &domain.ConstraintError{Detail: fmt.Sprintf("username %q ya registrado", in.Username)}
		}
		id, err := u.Users().Add(ctx, repository.Fields{
			repository.UserUsername:     in.Username,
			repository.UserFullName:     in.FullName,
			repository.UserEmail:        in.Email,
			repository.UserPasswordHash: digest,
			repository.UserDisabled:     false,
			repository.UserRoles:        []entity.Role{},
		})
		if err != nil {
			return 0, err
		}
		if err := u.Commit(ctx); err != nil {
			return 0, err
		}
		uc.log.Info().Int64("user_id", id).Str("username", in.Username).Msg("usuario creado")
		return id, nil
	})
}

// Update actualización parcial de perfil por el propio usuario o un USER_ADMIN.
func (uc *UserUseCase) Update(ctx context.Context, actor *entity.User, id int64, in dto.UpdateUserRequest) (int64, error) {
	if in.Empty() {
		return 0, fmt.Errorf("%w: no hay campos que actualizar", domain.ErrInvalidInput)
	}
	if err := EnsureCanManage(actor, id); err != nil {
		return 0, err
	}
	fields := repository.Fields{}
	if in.Username != nil {
		fields[repository.UserUsername] = *in.Username
	}
	if in.FullName != nil {
		fields[repository.UserFullName] = *in.FullName
	}
	if in.Email != nil {
		fields[repository.UserEmail] = *in.Email
	}
	return uc.edit(ctx, id, fields)
}

// Delete baja lógica: disabled = true. La fila nunca se borra.
func (uc *UserUseCase) Delete(ctx context.Context, id int64) (int64, error) {
	return uc.edit(ctx, id, repository.Fields{repository.UserDisabled: true})
}

// ChangePassword por el propio usuario o un USER_ADMIN.
func (uc *UserUseCase) ChangePassword(ctx context.Context, actor *entity.User, id int64, password string) (int64, error) {
	if err := EnsureCanManage(actor, id); err != nil {
		return 0, err
	}
	digest, err := uc.hasher.Hash(password)
	if err != nil {
		return 0, err
	}
	return uc.edit(ctx, id, repository.Fields{repository.UserPasswordHash: digest})
}

// GrantRoles unión de conjuntos; otorgar un rol ya presente no cambia nada.
func (uc *UserUseCase) GrantRoles(ctx context.Context, id int64, roles []entity.Role) (*dto.UserResponse, error) {
	return uc.mutateRoles(ctx, id, func(cur []entity.Role) []entity.Role {
		return entity.UnionRoles(cur, roles)
	})
}

// RevokeRoles diferencia de conjuntos; revocar un rol ausente no cambia nada.
func (uc *UserUseCase) RevokeRoles(ctx context.Context, id int64, roles []entity.Role) (*dto.UserResponse, error) {
	return uc.mutateRoles(ctx, id, func(cur []entity.Role) []entity.Role {
		return entity.DifferenceRoles(cur, roles)
	})
}

// mutateRoles lee con bloqueo de fila, así dos mutaciones concurrentes sobre el mismo usuario
// se serializan en lugar de pisarse.
func (uc *UserUseCase) mutateRoles(ctx context.Context, id int64, next func([]entity.Role) []entity.Role) (*dto.UserResponse, error) {
	return uow.Query(ctx, uc.newUoW, func(u *uow.UnitOfWork) (*dto.UserResponse, error) {
		usr, err := u.Users().FindOneForUpdate(ctx, repository.Filter{repository.UserID: id})
		if err != nil {
			return nil, err
		}
		roles := next(usr.Roles)
		if !slices.Equal(roles, entity.UnionRoles(usr.Roles, nil)) {
			if _, err := u.Users().Edit(ctx, id, repository.Fields{repository.UserRoles: roles}); err != nil {
				return nil, err
			}
			if err := u.Commit(ctx); err != nil {
				return nil, err
			}
			uc.log.Info().Int64("user_id", id).Strs("roles", rolesToStrings(roles)).Msg("roles actualizados")
		}
		usr.Roles = roles
		out := dto.NewUserResponse(usr)
		return &out, nil
	})
}

func (uc *UserUseCase) edit(ctx context.Context, id int64, fields repository.Fields) (int64, error) {
	return uow.Query(ctx, uc.newUoW, func(u *uow.UnitOfWork) (int64, error) {
		got, err := u.Users().Edit(ctx, id, fields)
		if err != nil {
			return 0, err
		}
		return got, u.Commit(ctx)
	})
}

func rolesToStrings(rs []entity.Role) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}
