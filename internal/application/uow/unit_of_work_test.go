package uow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/tutorlab-api/internal/application/uow"
	"github.com/jhoicas/tutorlab-api/internal/domain"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/memory"
)

func aliceFields() repository.Fields {
	return repository.Fields{
		repository.UserUsername:     "alice",
		repository.UserEmail:        "alice@example.com",
		repository.UserPasswordHash: "digest",
	}
}

func countUsers(t *testing.T, newUoW uow.Factory) int {
	t.Helper()
	n, err := uow.Query(context.Background(), newUoW, func(u *uow.UnitOfWork) (int, error) {
		all, err := u.Users().FindAll(context.Background(), nil)
		return len(all), err
	})
	require.NoError(t, err)
	return n
}

// ──────────────────────────────────────────────────────────────────────────────
// Máquina de estados
// ──────────────────────────────────────────────────────────────────────────────

func TestUnitOfWork_Transiciones(t *testing.T) {
	ctx := context.Background()
	u := uow.New(memory.NewStore())
	assert.Equal(t, uow.Idle, u.State())

	assert.ErrorIs(t, u.Commit(ctx), uow.ErrInvalidState, "commit en Idle no es válido")
	assert.ErrorIs(t, u.Rollback(ctx), uow.ErrInvalidState)

	require.NoError(t, u.Enter(ctx))
	assert.Equal(t, uow.Active, u.State())
	assert.ErrorIs(t, u.Enter(ctx), uow.ErrInvalidState, "no se anidan ámbitos")

	require.NoError(t, u.Exit(ctx))
	assert.Equal(t, uow.Closed, u.State())
	require.NoError(t, u.Exit(ctx), "exit es idempotente")
	assert.ErrorIs(t, u.Commit(ctx), uow.ErrInvalidState)
}

func TestUnitOfWork_RepositorioTrasExitFalla(t *testing.T) {
	ctx := context.Background()
	u := uow.New(memory.NewStore())
	require.NoError(t, u.Enter(ctx))
	repo := u.Users()
	require.NoError(t, u.Exit(ctx))

	_, err := repo.FindAll(ctx, nil)
	assert.ErrorIs(t, err, repository.ErrScopeNotActive)
	_, err = u.Users().Add(ctx, aliceFields())
	assert.ErrorIs(t, err, repository.ErrScopeNotActive)
}

// ──────────────────────────────────────────────────────────────────────────────
// Atomicidad
// ──────────────────────────────────────────────────────────────────────────────

func TestRun_ErrorAntesDeCommitNoSeObserva(t *testing.T) {
	ctx := context.Background()
	newUoW := uow.NewFactory(memory.NewStore())
	boom := errors.New("boom")

	err := uow.Run(ctx, newUoW, func(u *uow.UnitOfWork) error {
		if _, err := u.Users().Add(ctx, aliceFields()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, countUsers(t, newUoW))
}

func TestRun_PanicoLiberaYDeshace(t *testing.T) {
	ctx := context.Background()
	newUoW := uow.NewFactory(memory.NewStore())

	assert.Panics(t, func() {
		_ = uow.Run(ctx, newUoW, func(u *uow.UnitOfWork) error {
			_, _ = u.Users().Add(ctx, aliceFields())
			panic("fallo inesperado")
		})
	})

	// si la sesión no se liberó, el siguiente ámbito quedaría bloqueado
	done := make(chan int, 1)
	go func() { done <- countUsers(t, newUoW) }()
	select {
	case n := <-done:
		assert.Zero(t, n)
	case <-time.After(2 * time.Second):
		t.Fatal("la sesión no se liberó tras el pánico")
	}
}

func TestRun_SinCommitExitDeshace(t *testing.T) {
	ctx := context.Background()
	newUoW := uow.NewFactory(memory.NewStore())

	require.NoError(t, uow.Run(ctx, newUoW, func(u *uow.UnitOfWork) error {
		_, err := u.Users().Add(ctx, aliceFields())
		return err
	}))
	assert.Zero(t, countUsers(t, newUoW))
}

func TestRun_CommitYContinuarLeyendo(t *testing.T) {
	ctx := context.Background()
	newUoW := uow.NewFactory(memory.NewStore())

	err := uow.Run(ctx, newUoW, func(u *uow.UnitOfWork) error {
		id, err := u.Users().Add(ctx, aliceFields())
		require.NoError(t, err)
		require.NoError(t, u.Commit(ctx))

		got, err := u.Users().FindOne(ctx, repository.Filter{repository.UserID: id})
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)

		// escritura posterior sin commit: exit la descarta
		_, err = u.Users().Edit(ctx, id, repository.Fields{repository.UserDisabled: true})
		return err
	})
	require.NoError(t, err)

	disabled, err := uow.Query(ctx, newUoW, func(u *uow.UnitOfWork) (bool, error) {
		got, err := u.Users().FindOne(ctx, repository.Filter{repository.UserUsername: "alice"})
		if err != nil {
			return false, err
		}
		return got.Disabled, nil
	})
	require.NoError(t, err)
	assert.False(t, disabled)
}

func TestRun_RollbackExplicito(t *testing.T) {
	ctx := context.Background()
	newUoW := uow.NewFactory(memory.NewStore())

	require.NoError(t, uow.Run(ctx, newUoW, func(u *uow.UnitOfWork) error {
		_, err := u.Users().Add(ctx, aliceFields())
		require.NoError(t, err)
		require.NoError(t, u.Rollback(ctx))
		n, err := u.Users().FindAll(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, n)
		return u.Commit(ctx)
	}))
	assert.Zero(t, countUsers(t, newUoW))
}

// ──────────────────────────────────────────────────────────────────────────────
// Repositorio a través del ámbito
// ──────────────────────────────────────────────────────────────────────────────

func TestRepositorio_ContratoCRUD(t *testing.T) {
	ctx := context.Background()
	newUoW := uow.NewFactory(memory.NewStore())

	require.NoError(t, uow.Run(ctx, newUoW, func(u *uow.UnitOfWork) error {
		users := u.Users()

		id, err := users.Add(ctx, aliceFields())
		require.NoError(t, err)

		_, err = users.Add(ctx, aliceFields())
		assert.ErrorIs(t, err, domain.ErrConflict, "par (username, email) duplicado")

		sameName := aliceFields()
		sameName[repository.UserEmail] = "alice@other.org"
		_, err = users.Add(ctx, sameName)
		assert.ErrorIs(t, err, domain.ErrConflict, "username es único por sí solo")

		second := aliceFields()
		second[repository.UserUsername] = "carol"
		second[repository.UserEmail] = "carol@example.com"
		id2, err := users.Add(ctx, second)
		require.NoError(t, err)

		_, err = users.Edit(ctx, id2, repository.Fields{repository.UserUsername: "alice"})
		assert.ErrorIs(t, err, domain.ErrConflict, "renombrar sobre un username ajeno")

		_, err = users.FindOne(ctx, repository.Filter{repository.UserDisabled: false})
		assert.ErrorIs(t, err, repository.ErrMultipleResults)

		_, err = users.FindOne(ctx, repository.Filter{repository.UserUsername: "bob"})
		var nf *domain.NotFoundError
		assert.ErrorAs(t, err, &nf)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		ok, err := users.Exists(ctx, repository.Filter{repository.UserID: id2})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := users.Edit(ctx, id, repository.Fields{repository.UserFullName: "Alice Liddell"})
		require.NoError(t, err)
		assert.Equal(t, id, got)

		_, err = users.Edit(ctx, 999, repository.Fields{repository.UserDisabled: true})
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = users.FindAll(ctx, repository.Filter{"password": "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		require.NoError(t, users.DeleteOne(ctx, repository.Filter{repository.UserID: id2}))
		assert.ErrorIs(t, users.DeleteOne(ctx, repository.Filter{repository.UserID: id2}), domain.ErrNotFound)

		require.NoError(t, users.DeleteBatch(ctx, repository.Filter{repository.UserUsername: "nadie"}))
		require.NoError(t, users.DeleteBatch(ctx, repository.Filter{repository.UserDisabled: false}))
		left, err := users.FindAll(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, left)
		return nil
	}))
}

func TestEnter_ContextoCanceladoMientrasEspera(t *testing.T) {
	store := memory.NewStore()
	holder := uow.New(store)
	require.NoError(t, holder.Enter(context.Background()))
	defer holder.Exit(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	u := uow.New(store)
	err := u.Enter(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uow.Closed, u.State())
}
