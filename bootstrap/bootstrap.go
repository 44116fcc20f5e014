package bootstrap

import (
	"context"
	"errors"
	"os"
	"time"

	usersvc "taxqual-backend/internal/application/users"
	"taxqual-backend/internal/config"
	"taxqual-backend/internal/infrastructure/database"
	"taxqual-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// New creates the Fiber app for serverless handlers (api imports this package, not internal).
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	ConfigureLogger(cfg)
	app, db, _, err := router.CreateApp(cfg)
	if err != nil {
		return nil, err
	}
	if err := Prepare(context.Background(), cfg, db); err != nil {
		return nil, err
	}
	return app, nil
}

// ConfigureLogger sets the global zerolog logger: JSON in production, console otherwise.
func ConfigureLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

// Prepare migrates the schema and seeds the first admin when the users table is empty.
func Prepare(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	users := &usersvc.Service{DB: db}
	_, err := users.SeedAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	if errors.Is(err, usersvc.ErrSeedNotConfigured) {
		log.Warn().Msg("No users yet and SEED_ADMIN_EMAIL / SEED_ADMIN_PASSWORD are not set")
		return nil
	}
	return err
}
