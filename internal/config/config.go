package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string

	SupabaseURL       string // storage REST base, e.g. https://<project>.supabase.co
	SupabaseSecretKey string // service_role key, not the anon key

	ImportArchiveBucket   string // empty disables upload archiving
	ImportMaxBytes        int64
	ImportValidateFactors bool

	LoginMaxAttempts int
	LoginLockFor     time.Duration

	SeedAdminEmail    string
	SeedAdminPassword string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetDefault("PORT", "8080")
	v.SetDefault("IMPORT_MAX_BYTES", 10<<20)
	v.SetDefault("IMPORT_VALIDATE_FACTORS", false)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_LOCK_MINUTES", 15)

	env := v.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := v.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = v.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = v.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	return &Config{
		Env:                   env,
		Port:                  v.GetString("PORT"),
		SessionSecret:         v.GetString("SESSION_SECRET"),
		DatabaseURL:           dbURL,
		RedisURL:              v.GetString("REDIS_URL"),
		FrontendURLEndsWith:   v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:           v.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:     v.GetBool("ALLOW_CROSS_SITE_DEV"),
		HealthAdminKey:        v.GetString("HEALTH_ADMIN_KEY"),
		SupabaseURL:           v.GetString("SUPABASE_URL"),
		SupabaseSecretKey:     v.GetString("SUPABASE_SECRET_KEY"),
		ImportArchiveBucket:   strings.TrimSpace(v.GetString("IMPORT_ARCHIVE_BUCKET")),
		ImportMaxBytes:        v.GetInt64("IMPORT_MAX_BYTES"),
		ImportValidateFactors: v.GetBool("IMPORT_VALIDATE_FACTORS"),
		LoginMaxAttempts:      v.GetInt("LOGIN_MAX_ATTEMPTS"),
		LoginLockFor:          time.Duration(v.GetInt("LOGIN_LOCK_MINUTES")) * time.Minute,
		SeedAdminEmail:        v.GetString("SEED_ADMIN_EMAIL"),
		SeedAdminPassword:     v.GetString("SEED_ADMIN_PASSWORD"),
	}, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ArchiveEnabled reports whether uploads are copied to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.SupabaseURL != "" && c.ImportArchiveBucket != ""
}
