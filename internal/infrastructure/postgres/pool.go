package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/tutorlab-api/pkg/config"
)

// Schema DDL de user_accounts. La ejecución de migraciones es externa; se expone para tests de
// integración y herramientas.
//
//go:embed migrations/0001_user_accounts.sql
var Schema string

// NewPool crea un pool de conexiones PostgreSQL usando la configuración de la app.
// No conecta: la disponibilidad la verifica el supervisor de readiness.
func NewPool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	poolConfig.MaxConns = 25
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.MinConns = 0
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("crear pool: %w", err)
	}
	return pool, nil
}

// Prober sondeo de vida trivial.
type Prober struct {
	pool *pgxpool.Pool
}

// NewProber construye el sondeo sobre el pool.
func NewProber(pool *pgxpool.Pool) *Prober {
	return &Prober{pool: pool}
}

// Ping ejecuta SELECT 1.
func (p *Prober) Ping(ctx context.Context) error {
	var one int
	if err := p.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("select 1: %w", err)
	}
	if one != 1 {
		return fmt.Errorf("select 1 devolvió %d", one)
	}
	return nil
}
