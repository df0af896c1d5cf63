// Package storage elige el backend de persistencia según DB_DRIVER.
package storage

import (
	"context"
	"fmt"

	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/memory"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/postgres"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/readiness"
	"github.com/jhoicas/tutorlab-api/pkg/config"
)

// Backend sesiones, sondeo y cierre de un backend concreto.
type Backend struct {
	Driver   string
	Sessions repository.SessionFactory
	Prober   readiness.Prober
	Close    func()
}

// Open construye el backend sin conectar; la disponibilidad la decide el supervisor.
func Open(ctx context.Context, cfg config.DBConfig) (*Backend, error) {
	switch cfg.Driver {
	case config.DriverPostgres, "":
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Driver:   config.DriverPostgres,
			Sessions: postgres.NewSessionFactory(pool),
			Prober:   postgres.NewProber(pool),
			Close:    pool.Close,
		}, nil
	case config.DriverMemory:
		store := memory.NewStore()
		return &Backend{
			Driver:   config.DriverMemory,
			Sessions: store,
			Prober:   store,
			Close:    func() {},
		}, nil
	}
	return nil, fmt.Errorf("driver de almacenamiento desconocido %q", cfg.Driver)
}
