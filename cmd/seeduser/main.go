// seeduser ensures the built-in roles exist and creates, or re-activates and
// resets, a developer account.
//
//	go run ./cmd/seeduser -username admin -password 'change-me-now'
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"zedcmms/internal/config"
	"zedcmms/internal/dto"
	"zedcmms/internal/infra"
	"zedcmms/internal/repository"
	"zedcmms/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	username := flag.String("username", "developer", "login name")
	password := flag.String("password", os.Getenv("SEED_PASSWORD"), "password (default $SEED_PASSWORD)")
	email := flag.String("email", "", "optional e-mail")
	flag.Parse()
	if len(*password) < 8 {
		log.Fatal().Msg("password must be at least 8 characters (-password or SEED_PASSWORD)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	roles, err := config.LoadRoles(cfg.RolesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load roles")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	ctx := context.Background()
	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	audit := service.NewAuditService(repository.NewAuditRepository(db))

	if err := service.NewPermissionService(roleRepo, roles, audit).EnsureRoles(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure roles")
	}

	existing, err := userRepo.FindByLogin(ctx, *username)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		req := dto.CreateUserRequest{Username: *username, FullName: "Developer", Password: *password, RoleName: config.RoleDeveloper}
		if *email != "" {
			req.Email = email
		}
		u, err := service.NewUserService(userRepo, roleRepo, cfg, audit).CreateUser(ctx, uuid.Nil, req)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create user")
		}
		log.Info().Str("username", u.Username).Str("id", u.ID).Msg("developer account created")
	case err != nil:
		log.Fatal().Err(err).Msg("failed to look up user")
	default:
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), 12)
		if err != nil {
			log.Fatal().Err(err).Msg("bcrypt failed")
		}
		existing.PasswordHash = string(hash)
		existing.IsActive = true
		existing.MustChangePassword = false
		if err := userRepo.Update(ctx, existing); err != nil {
			log.Fatal().Err(err).Msg("failed to update user")
		}
		log.Info().Str("username", existing.Username).Msg("existing account re-activated and password reset")
	}
}
