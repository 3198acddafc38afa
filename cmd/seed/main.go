// seed inserts development principals for local testing: go run ./cmd/seed.
// Idempotent: principals whose email already exists are skipped.
package main

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/config"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/db"
	identityrepo "github.com/Zaid-daoud/Farkoosh-Backend/internal/identity/repository"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/identity/service"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/logging"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/security"
	sessionrepo "github.com/Zaid-daoud/Farkoosh-Backend/internal/session/repository"
	userdomain "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/domain"
	userrepo "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/repository"
)

const devPassword = "password123"

var devPrincipals = []service.RegisterRequest{
	{Email: "dev@example.com", Password: devPassword, FirstName: "Dev", LastName: "User", Role: "USER", DeviceInfo: "seed"},
	{Email: "driver@example.com", Password: devPassword, FirstName: "Dev", LastName: "Driver", Role: "DRIVER", Gender: "MALE", DeviceInfo: "seed"},
}

const adminEmail = "admin@example.com"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, "farkoosh-seed")
	ctx := logger.WithContext(context.Background())

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db")
	}
	defer conn.Close()

	tokens, err := security.NewTokenProvider(cfg.TokenConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("tokens")
	}
	hasher := security.NewHasher(cfg.BcryptCost)
	users := userrepo.NewPostgresRepository(conn)
	auth := service.NewAuthService(users, sessionrepo.NewPostgresRepository(conn), identityrepo.NewPostgresTransactor(conn), hasher, tokens)

	for _, req := range devPrincipals {
		seedPrincipal(ctx, auth, req)
	}
	if err := seedAdmin(ctx, conn, hasher); err != nil {
		logger.Fatal().Err(err).Msg("seed admin")
	}
	logger.Info().Str("password", devPassword).Msg("seed complete")
}

func seedPrincipal(ctx context.Context, auth *service.AuthService, req service.RegisterRequest) {
	logger := zerolog.Ctx(ctx).With().Str("email", req.Email).Logger()
	in, err := service.NewRegisterInput(req)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid seed principal")
	}
	res, err := auth.Register(ctx, in)
	switch {
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		logger.Info().Msg("already seeded, skipping")
	case err != nil:
		logger.Fatal().Err(err).Msg("register")
	default:
		logger.Info().Str("user_id", res.User.ID).Str("role", string(res.User.Role)).Msg("seeded")
	}
}

// seedAdmin writes the ADMIN principal directly; registration never grants ADMIN.
func seedAdmin(ctx context.Context, conn *sql.DB, hasher *security.Hasher) error {
	hash, err := hasher.Hash(devPassword)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	admin := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        adminEmail,
		PasswordHash: hash,
		Role:         userdomain.RoleAdmin,
		Profile:      userdomain.Profile{ID: uuid.New().String(), FirstName: "Dev", LastName: "Admin"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		return userrepo.NewPostgresRepository(tx).Create(ctx, admin)
	})
	if errors.Is(err, userdomain.ErrEmailTaken) {
		zerolog.Ctx(ctx).Info().Str("email", adminEmail).Msg("already seeded, skipping")
		return nil
	}
	if err == nil {
		zerolog.Ctx(ctx).Info().Str("email", adminEmail).Str("user_id", admin.ID).Msg("seeded")
	}
	return err
}
