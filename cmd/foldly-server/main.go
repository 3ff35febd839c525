package main

import (
	"os"

	"github.com/foldly/foldly/pkg/foldly/auth"
	"github.com/foldly/foldly/pkg/foldly/database"
	"github.com/foldly/foldly/pkg/foldly/files"
	"github.com/foldly/foldly/pkg/foldly/links"
	"github.com/foldly/foldly/pkg/foldly/models"
	"github.com/foldly/foldly/pkg/foldly/permissions"
	"github.com/foldly/foldly/pkg/foldly/public"
	"github.com/foldly/foldly/pkg/foldly/ratelimit"
	"github.com/foldly/foldly/pkg/foldly/storage"
	"github.com/foldly/foldly/pkg/foldly/workspaces"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title Foldly API
// @version 1.0
// @description Shareable file-upload links with per-link access control and branding.

// @license.name MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("FOLDLY_PRETTY_LOGS") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	dbPath := os.Getenv("FOLDLY_DB_PATH")
	if dbPath == "" {
		dbPath = "foldly.db"
	}

	if err := database.Connect(dbPath); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := models.AutoMigrate(database.GetDB()); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations completed")

	storageRoot := os.Getenv("FOLDLY_STORAGE_ROOT")
	if storageRoot == "" {
		storageRoot = "./data/storage"
	}
	baseURL := os.Getenv("FOLDLY_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	store := storage.NewLocal(storageRoot, baseURL+"/files")

	rl := ratelimit.New()

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Stored objects (uploads, branding logos) are served straight from the
	// local storage root. A cloud storage client would serve its own URLs.
	r.Static("/files", storageRoot)

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "foldly",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(database.GetDB())
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Public upload-page routes (rate limited by client IP)
		publicHandler := public.NewHandler(database.GetDB(), store)
		publicHandler.RegisterRoutes(api.Group(""), rl)

		// Everything below requires a JWT
		protected := api.Group("", auth.AuthMiddleware())

		workspacesHandler := workspaces.NewHandler(database.GetDB())
		workspacesHandler.RegisterRoutes(protected)

		linksHandler := links.NewHandler(database.GetDB(), store)
		linksHandler.RegisterRoutes(protected, rl)

		permissionsHandler := permissions.NewHandler(database.GetDB())
		permissionsHandler.RegisterRoutes(protected, rl)

		filesHandler := files.NewHandler(database.GetDB())
		filesHandler.RegisterRoutes(protected, rl)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Msg("starting foldly server")
	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
