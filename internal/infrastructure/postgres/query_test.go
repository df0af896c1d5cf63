package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/tutorlab-api/internal/domain"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
)

func TestBuildWhere_OrdenEstableYPlaceholders(t *testing.T) {
	where, args, err := buildWhere(repository.Filter{
		repository.UserUsername: "alice",
		repository.UserDisabled: false,
		repository.UserFullName: nil,
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, " WHERE disabled = $1 AND fullname IS NULL AND username = $2", where)
	assert.Equal(t, []any{false, "alice"}, args)
}

func TestBuildWhere_Vacio(t *testing.T) {
	where, args, err := buildWhere(nil, 1)
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildWhere_ColumnaDesconocidaNoLlegaAlSQL(t *testing.T) {
	_, _, err := buildWhere(repository.Filter{"1=1; DROP TABLE user_accounts; --": 1}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = buildWhere(repository.Filter{repository.UserRoles: []string{"TUTOR"}}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAssignments_ConvierteRolesYFullnameVacio(t *testing.T) {
	cols, args, err := assignments(repository.Fields{
		repository.UserRoles:    []entity.Role{entity.RoleTutor, entity.RoleStudent},
		repository.UserFullName: "",
		repository.UserEmail:    "a@b.c",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"email", "fullname", "roles"}, cols)
	assert.Equal(t, "a@b.c", args[0])
	assert.Nil(t, args[1])
	assert.Equal(t, []string{"TUTOR", "STUDENT"}, args[2])
}
