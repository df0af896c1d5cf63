// Package metrics define las métricas Prometheus propias del servicio. Se registran en el
// registro por defecto al importar el paquete y se exponen en /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tutorlab"

// ── Autenticación ─────────────────────────────────────────────────────────────

// LoginAttemptsTotal intentos de login.
// Label:
//   - outcome: "success", "failure" (credenciales inválidas) o "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"outcome"},
)

// AccessDeniedTotal rechazos del guard.
// Label:
//   - reason: "missing", "invalid", "inactive", "role" o "error"
var AccessDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_denied_total",
		Help:      "Total number of requests rejected by the access guard.",
	},
	[]string{"reason"},
)

// ── Persistencia ──────────────────────────────────────────────────────────────

// TransactionsTotal transacciones terminadas.
// Label:
//   - result: "commit" o "rollback"
var TransactionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_total",
		Help:      "Total number of storage transactions finished, by result.",
	},
	[]string{"result"},
)

// ReadinessProbesTotal sondeos de la base.
// Label:
//   - result: "ok" o "fail"
var ReadinessProbesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readiness_probes_total",
		Help:      "Total number of database liveness probes, by result.",
	},
	[]string{"result"},
)

// ── Websocket ─────────────────────────────────────────────────────────────────

// WSConnections conexiones activas en este proceso.
var WSConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections",
		Help:      "Current number of registered websocket connections.",
	},
)

// WSMessagesTotal mensajes salientes.
// Label:
//   - kind: "direct", "broadcast" o "dropped"
var WSMessagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_messages_total",
		Help:      "Total number of outbound websocket messages, by kind.",
	},
	[]string{"kind"},
)

// ── HTTP ──────────────────────────────────────────────────────────────────────

// HTTPRequestDuration latencia por ruta.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests, by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)
