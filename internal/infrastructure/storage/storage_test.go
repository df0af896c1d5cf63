package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/tutorlab-api/internal/infrastructure/storage"
	"github.com/jhoicas/tutorlab-api/pkg/config"
)

func TestOpen_Memory(t *testing.T) {
	b, err := storage.Open(context.Background(), config.DBConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, config.DriverMemory, b.Driver)
	require.NoError(t, b.Prober.Ping(context.Background()))

	s, err := b.Sessions.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close(context.Background()))
}

// El pool de pgx no conecta al construirse: un host inexistente no falla aquí.
func TestOpen_PostgresNoConecta(t *testing.T) {
	b, err := storage.Open(context.Background(), config.DBConfig{
		Driver: config.DriverPostgres, Host: "db.invalid", Port: 5432, User: "u", DBName: "x", SSLMode: "disable",
	})
	require.NoError(t, err)
	defer b.Close()
	assert.Equal(t, config.DriverPostgres, b.Driver)
}

func TestOpen_DriverDesconocido(t *testing.T) {
	_, err := storage.Open(context.Background(), config.DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}
