package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/tutorlab-api/internal/application/auth"
	"github.com/jhoicas/tutorlab-api/internal/application/uow"
	"github.com/jhoicas/tutorlab-api/internal/application/usecase"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/readiness"
	infraredis "github.com/jhoicas/tutorlab-api/internal/infrastructure/redis"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/storage"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/ws"
	httpRouter "github.com/jhoicas/tutorlab-api/internal/interfaces/http"
	"github.com/jhoicas/tutorlab-api/pkg/config"
	"github.com/jhoicas/tutorlab-api/pkg/hasher"
	"github.com/jhoicas/tutorlab-api/pkg/jwt"
	"github.com/jhoicas/tutorlab-api/pkg/logger"
)

// Reintentos cuando la base cae con el servidor ya en marcha.
const (
	requestProbeAttempts = 3
	requestProbeDelay    = time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db_driver", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := ws.NewHub(log)
	go hub.Run(ctx)

	// Con Redis los avisos llegan a los clientes de todos los procesos.
	var notifier readiness.Notifier = hub
	if cfg.Redis.Enabled() {
		rdb, err := infraredis.Connect(ctx, infraredis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		fanout := infraredis.NewFanout(rdb, cfg.Redis.Channel, hub, log)
		if err := fanout.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("suscripción Redis")
		}
		notifier = fanout
	}

	backend, err := storage.Open(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	defer backend.Close()

	supervisor := readiness.New(backend.Prober, log,
		readiness.WithNotifier(notifier),
		readiness.WithProbeTimeout(cfg.Readiness.ProbeTimeout),
	)
	if err := supervisor.AwaitReady(ctx, cfg.Readiness.MaxAttempts, cfg.Readiness.Delay); err != nil {
		log.Fatal().Err(err).Msg("base de datos no disponible")
	}

	newUoW := uow.NewFactory(readiness.NewGate(backend.Sessions, supervisor, requestProbeAttempts, requestProbeDelay))

	pwHasher, err := hasher.New(cfg.Hash.Scheme, cfg.Hash.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("hasher de contraseñas")
	}
	codec, err := jwt.NewCodec(jwt.Config{
		Secret:       cfg.JWT.Secret,
		Algorithm:    cfg.JWT.Algorithm,
		Lifetime:     time.Duration(cfg.JWT.Expiration) * time.Minute,
		Issuer:       cfg.JWT.Issuer,
		ExpiryPolicy: cfg.JWT.ExpiryPolicy,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("codec JWT")
	}

	guard := auth.NewGuard(codec, newUoW)
	authUC := auth.NewAuthUseCase(newUoW, pwHasher, codec, log)
	userUC := usecase.NewUserUseCase(newUoW, pwHasher, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(log),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(httpRouter.RequestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.HTTP.CORSOrigins,
		AllowCredentials: true,
	}))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat("./docs/swagger.json"); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "TutorLab API",
		}))
	}

	health := httpRouter.NewHealthHandler(cfg.App.Name, supervisor)
	app.Get("/health", health.Liveness)
	app.Get("/health/ready", health.Readiness)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:          authUC,
		UserUC:          userUC,
		Guard:           guard,
		Hub:             hub,
		Log:             log,
		CookieSecure:    cfg.HTTP.CookieSecure,
		LoginRateLimit:  cfg.HTTP.LoginRateLimit,
		LocalizationDir: cfg.Localization.Dir,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	stop()

	log.Info().Msg("aplicación detenida")
}
