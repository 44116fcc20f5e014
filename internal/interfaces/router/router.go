package router

import (
	auditsvc "taxqual-backend/internal/application/audit"
	authsvc "taxqual-backend/internal/application/auth"
	importsvc "taxqual-backend/internal/application/imports"
	qualsvc "taxqual-backend/internal/application/qualifications"
	uploadsvc "taxqual-backend/internal/application/uploads"
	usersvc "taxqual-backend/internal/application/users"
	wizsvc "taxqual-backend/internal/application/wizard"
	"taxqual-backend/internal/config"
	"taxqual-backend/internal/constants"
	"taxqual-backend/internal/infrastructure/database"
	audithandler "taxqual-backend/internal/interfaces/handlers/audit"
	authhandler "taxqual-backend/internal/interfaces/handlers/auth"
	factorhandler "taxqual-backend/internal/interfaces/handlers/factors"
	healthhandler "taxqual-backend/internal/interfaces/handlers/health"
	importhandler "taxqual-backend/internal/interfaces/handlers/imports"
	qualhandler "taxqual-backend/internal/interfaces/handlers/qualifications"
	userhandler "taxqual-backend/internal/interfaces/handlers/users"
	wizhandler "taxqual-backend/internal/interfaces/handlers/wizard"
	"taxqual-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func sessionConfig(cfg *config.Config) middleware.SessionConfig {
	return middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}
}

// CreateApp connects to Redis and the database and builds the Fiber app.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	sessionHandler, rdb, err := middleware.Session(sessionConfig(cfg))
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	return NewApp(cfg, db, rdb, sessionHandler), db, rdb, nil
}

// NewApp registers middleware and routes on already-connected stores.
func NewApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client, sessionHandler fiber.Handler) *fiber.App {
	maxBytes := cfg.ImportMaxBytes
	if maxBytes <= 0 {
		maxBytes = importsvc.DefaultMaxBytes
	}
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
		// multipart overhead on top of the largest accepted upload
		BodyLimit: int(maxBytes) + 1<<20,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             &gormDBPinger{db: db},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)


	audit := &auditsvc.Service{DB: db}
	auth := &authsvc.Service{
		DB:          db,
		Audit:       audit,
		MaxAttempts: cfg.LoginMaxAttempts,
		LockFor:     cfg.LoginLockFor,
	}
	ah := &authhandler.Handlers{UserFinder: auth, Logouts: auth, Rdb: rdb, Config: sessionConfig(cfg)}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	api := app.Group("/api/v1", middleware.RequireAuth())
	view := middleware.AuthorizePermission(constants.ViewData)
	edit := middleware.AuthorizePermission(constants.EditQualifications)

	quals := &qualsvc.Service{DB: db}
	qh := &qualhandler.Handlers{Service: quals}
	qg := api.Group("/qualifications")
	qg.Get("/", view, qh.List)
	qg.Get("/dashboard", view, qh.Dashboard)
	qg.Get("/:id", view, qh.Get)
	qg.Delete("/:id", middleware.AuthorizePermission(constants.DeleteQualifications), qh.Delete)

	wh := &wizhandler.Handlers{Service: &wizsvc.Service{
		Store:          &wizsvc.RedisStore{Rdb: rdb},
		Qualifications: quals,
	}}
	wg := api.Group("/wizard", edit)
	wg.Get("/", wh.Get)
	wg.Delete("/", wh.Discard)
	wg.Post("/basics", wh.Basics)
	wg.Post("/amounts", wh.Amounts)
	wg.Post("/commit", wh.Commit)
	wg.Post("/edit/:id", wh.StartEdit)

	fh := &factorhandler.Handlers{}
	fg := api.Group("/factors", view)
	fg.Post("/derive", fh.Derive)
	fg.Post("/validate", fh.Validate)

	var archive importsvc.Archiver
	if cfg.ArchiveEnabled() {
		archive = &uploadsvc.Service{
			Client: &uploadsvc.HTTPClient{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey},
			Bucket: cfg.ImportArchiveBucket,
		}
	}
	ih := &importhandler.Handlers{Service: &importsvc.Service{
		DB:              db,
		Audit:           audit,
		Archive:         archive,
		ValidateFactors: cfg.ImportValidateFactors,
		MaxBytes:        maxBytes,
	}}
	ig := api.Group("/imports", middleware.AuthorizePermission(constants.BulkImport))
	ig.Post("/", ih.Upload)
	ig.Get("/", ih.List)

	uh := &userhandler.Handlers{Service: &usersvc.Service{DB: db}, Rdb: rdb}
	ug := api.Group("/users", middleware.AuthorizePermission(constants.ManageUsers))
	ug.Get("/", uh.List)
	ug.Post("/", uh.Create)
	ug.Put("/:id", uh.Update)
	ug.Delete("/:id", uh.Delete)

	adh := &audithandler.Handlers{Service: audit}
	api.Get("/audit", middleware.AuthorizePermission(constants.ViewAudit), adh.List)

	return app
}
