package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/tutorlab-api/pkg/logger"
)

// LocalBroadcaster entrega un mensaje a las conexiones de este proceso.
type LocalBroadcaster interface {
	Broadcast(ctx context.Context, msg string) error
}

// Fanout difunde mensajes websocket a todos los procesos vía pub/sub.
// Broadcast publica; cada proceso suscrito reenvía a su hub local.
type Fanout struct {
	client  *redis.Client
	channel string
	local   LocalBroadcaster
	log     *logger.Logger
}

// NewFanout construye el fan-out sobre un cliente ya conectado.
func NewFanout(client *redis.Client, channel string, local LocalBroadcaster, log *logger.Logger) *Fanout {
	return &Fanout{client: client, channel: channel, local: local, log: log.Component("fanout")}
}

// Broadcast publica msg en el canal compartido.
func (f *Fanout) Broadcast(ctx context.Context, msg string) error {
	if err := f.client.Publish(ctx, f.channel, msg).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Start se suscribe (esperando la confirmación) y reenvía en segundo plano hasta cancelar ctx.
func (f *Fanout) Start(ctx context.Context) error {
	sub := f.client.Subscribe(ctx, f.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe %s: %w", f.channel, err)
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				if err := f.local.Broadcast(ctx, m.Payload); err != nil {
					f.log.Warn().Err(err).Msg("reenvío local fallido")
				}
			}
		}
	}()
	return nil
}
