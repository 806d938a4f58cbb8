package main

import (
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sisbridge-backend/controllers"
	"sisbridge-backend/database"
	"sisbridge-backend/middlewares"
	"sisbridge-backend/routes"
	"sisbridge-backend/sync"
)

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") == "true" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// ---- Database
	database.Connect()
	database.AutoMigrate()
	if err := database.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}

	// ---- Sync engine
	cfg := sync.Config{
		FeedBaseURL:   os.Getenv("FEED_BASE_URL"),
		FetchTimeout:  time.Duration(envInt("FETCH_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxDocsPerRun: envInt("MAX_DOCS_PER_RUN", 500),
		SyncBackURL:   os.Getenv("SYNC_BACK_URL"),
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid sync configuration")
	}

	var reporter sync.Reporter = sync.NopReporter{}
	if cfg.SyncBackURL != "" {
		reporter = sync.NewHTTPReporter(cfg)
	}

	engine := sync.New(cfg,
		sync.NewSOAPFeed(cfg),
		database.NewLineStore(database.DB),
		database.NewDocumentStore(database.DB),
		database.NewCustomerDirectory(database.DB),
		database.NewProductCatalog(database.DB),
		reporter,
		database.NewRunLog(database.DB),
	)
	controllers.Setup(engine)

	// ---- Fiber app with global error handler + body limit
	bodyLimitBytes := envInt("BODY_LIMIT_BYTES", 0)
	if bodyLimitBytes <= 0 {
		bodyLimitBytes = envInt("BODY_LIMIT_MB", 4) * 1024 * 1024
	}
	app := fiber.New(fiber.Config{
		ErrorHandler: middlewares.ErrorHandler,
		BodyLimit:    bodyLimitBytes,
	})

	// ---- CORS
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))

	// ---- Global rate limiter
	rlMax := envInt("RATE_LIMIT_MAX", 60)
	rlWindow := time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
	app.Use(limiter.New(limiter.Config{
		Max:        rlMax,
		Expiration: rlWindow,
	}))

	// ---- Routes
	routes.Register(app)

	// ---- Start
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info().Str("port", port).Msg("starting API server")
	if err := app.Listen(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
