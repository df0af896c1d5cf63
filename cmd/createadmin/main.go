// createadmin crea el primer usuario con rol USER_ADMIN, o otorga el rol si el usuario ya existe.
//
// Uso: go run ./cmd/createadmin -username admin -email admin@example.com -password '...'
// La contraseña también puede venir de ADMIN_PASSWORD.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/tutorlab-api/internal/application/dto"
	"github.com/jhoicas/tutorlab-api/internal/application/uow"
	"github.com/jhoicas/tutorlab-api/internal/application/usecase"
	"github.com/jhoicas/tutorlab-api/internal/domain"
	"github.com/jhoicas/tutorlab-api/internal/domain/entity"
	"github.com/jhoicas/tutorlab-api/internal/domain/repository"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/readiness"
	"github.com/jhoicas/tutorlab-api/internal/infrastructure/storage"
	"github.com/jhoicas/tutorlab-api/pkg/config"
	"github.com/jhoicas/tutorlab-api/pkg/hasher"
	"github.com/jhoicas/tutorlab-api/pkg/logger"
)

func main() {
	username := flag.String("username", "admin", "nombre de usuario")
	email := flag.String("email", "", "email del administrador")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "contraseña (o ADMIN_PASSWORD)")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "email y password son obligatorios")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	if cfg.DB.Driver == config.DriverMemory {
		fmt.Fprintln(os.Stderr, "DB_DRIVER=memory no persiste entre procesos")
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx := context.Background()
	backend, err := storage.Open(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	defer backend.Close()

	sup := readiness.New(backend.Prober, log, readiness.WithProbeTimeout(cfg.Readiness.ProbeTimeout))
	if err := sup.AwaitReady(ctx, cfg.Readiness.MaxAttempts, cfg.Readiness.Delay); err != nil {
		log.Fatal().Err(err).Msg("base de datos no disponible")
	}

	pwHasher, err := hasher.New(cfg.Hash.Scheme, cfg.Hash.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("hasher de contraseñas")
	}
	newUoW := uow.NewFactory(backend.Sessions)
	users := usecase.NewUserUseCase(newUoW, pwHasher, log)

	id, err := createAdmin(ctx, users, newUoW, dto.CreateUserRequest{
		Username: *username,
		Email:    *email,
		Password: *password,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("crear administrador")
	}
	fmt.Printf("Administrador %q listo (id %d)\n", *username, id)
}

// createAdmin es idempotente: si el username existe solo se le otorga USER_ADMIN.
func createAdmin(ctx context.Context, users *usecase.UserUseCase, newUoW uow.Factory, in dto.CreateUserRequest) (int64, error) {
	id, err := users.Create(ctx, in)
	if errors.Is(err, domain.ErrConflict) {
		existing, ferr := uow.Query(ctx, newUoW, func(u *uow.UnitOfWork) (*entity.User, error) {
			return u.Users().FindOne(ctx, repository.Filter{repository.UserUsername: in.Username})
		})
		if ferr != nil {
			return 0, ferr
		}
		id, err = existing.ID, nil
	}
	if err != nil {
		return 0, err
	}
	if _, err := users.GrantRoles(ctx, id, []entity.Role{entity.RoleUserAdmin}); err != nil {
		return 0, err
	}
	return id, nil
}
