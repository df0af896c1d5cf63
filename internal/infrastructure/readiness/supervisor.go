// Package readiness supervisa la disponibilidad de la base antes de servir.
package readiness

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jhoicas/tutorlab-api/internal/domain"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/metrics"
	"github.com/jhoicas/tutorlab-api/pkg/logger"
)

// Prober sondeo de vida trivial contra la persistencia.
type Prober interface {
	Ping(ctx context.Context) error
}

// Notifier recibe un aviso por cada sondeo fallido (p. ej. difusión websocket).
type Notifier interface {
	Broadcast(ctx context.Context, msg string) error
}

// Supervisor no asume la base disponible hasta el primer sondeo correcto.
type Supervisor struct {
	probe        Prober
	notify       Notifier
	log          *logger.Logger
	probeTimeout time.Duration
	ready        atomic.Bool
}

// Option configura el supervisor.
type Option func(*Supervisor)

// WithNotifier avisa de cada intento fallido.
func WithNotifier(n Notifier) Option {
	return func(s *Supervisor) { s.notify = n }
}

// WithProbeTimeout acota cada sondeo individual.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.probeTimeout = d }
}

// New construye el supervisor.
func New(probe Prober, log *logger.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{probe: probe, log: log.Component("readiness"), probeTimeout: 5 * time.Second}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ready último resultado conocido.
func (s *Supervisor) Ready() bool { return s.ready.Load() }

// MarkDown fuerza un nuevo sondeo en el próximo Ensure.
func (s *Supervisor) MarkDown() { s.ready.Store(false) }

// Check un único sondeo; actualiza el estado.
func (s *Supervisor) Check(ctx context.Context) bool {
	return s.ping(ctx) == nil
}

func (s *Supervisor) ping(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	err := s.probe.Ping(pctx)
	if err != nil {
		metrics.ReadinessProbesTotal.WithLabelValues("fail").Inc()
		s.ready.Store(false)
		return err
	}
	metrics.ReadinessProbesTotal.WithLabelValues("ok").Inc()
	s.ready.Store(true)
	return nil
}

// AwaitReady sondea hasta el primer éxito o hasta agotar maxAttempts, esperando delay entre
// intentos. La espera solo bloquea al llamador y termina si ctx se cancela. Agotar los intentos
// devuelve domain.ErrDatabaseUnavailable: el llamador debe abortar.
func (s *Supervisor) AwaitReady(ctx context.Context, maxAttempts int, delay time.Duration) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = s.ping(ctx)
		if lastErr == nil {
			if attempt > 1 {
				s.log.Info().Int("attempt", attempt).Msg("base de datos disponible")
			}
			return nil
		}
		s.log.Warn().Err(lastErr).Int("attempt", attempt).Int("max_attempts", maxAttempts).
			Msg("sondeo de base de datos fallido")
		if s.notify != nil {
			if err := s.notify.Broadcast(ctx, "Database connection failed: "+lastErr.Error()); err != nil {
				s.log.Debug().Err(err).Msg("aviso de fallo no entregado")
			}
		}
		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: espera cancelada: %v", domain.ErrDatabaseUnavailable, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w: %d intentos agotados: %v", domain.ErrDatabaseUnavailable, maxAttempts, lastErr)
}

// Ensure no sondea si el último resultado fue correcto.
func (s *Supervisor) Ensure(ctx context.Context, maxAttempts int, delay time.Duration) error {
	if s.Ready() {
		return nil
	}
	return s.AwaitReady(ctx, maxAttempts, delay)
}

// Gate antepone el supervisor a la apertura de sesiones. Un fallo al abrir marca la base como
// caída y el siguiente ámbito vuelve a sondear.
type Gate struct {
	sessions    repository.SessionFactory
	sup         *Supervisor
	maxAttempts int
	delay       time.Duration
}

var _ repository.SessionFactory = (*Gate)(nil)

// NewGate envuelve sessions.
func NewGate(sessions repository.SessionFactory, sup *Supervisor, maxAttempts int, delay time.Duration) *Gate {
	return &Gate{sessions: sessions, sup: sup, maxAttempts: maxAttempts, delay: delay}
}

// Begin garantiza una base viva antes de abrir la sesión.
func (g *Gate) Begin(ctx context.Context) (repository.Session, error) {
	if err := g.sup.Ensure(ctx, g.maxAttempts, g.delay); err != nil {
		return nil, err
	}
	s, err := g.sessions.Begin(ctx)
	if err != nil {
		g.sup.MarkDown()
		return nil, err
	}
	return s, nil
}
