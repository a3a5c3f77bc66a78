package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"giftstudio/internal/auth"
	"giftstudio/internal/config"
	"giftstudio/internal/handler"
	"giftstudio/internal/middleware"
	"giftstudio/internal/repository"
	"giftstudio/internal/repository/writebehind"
	"giftstudio/internal/service/media"
	"giftstudio/internal/service/project"
	"giftstudio/internal/service/settings"
	"giftstudio/internal/service/validation"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

// shutdownTimeout bounds the final autosave and write-behind flush
const shutdownTimeout = 30 * time.Second

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"storage_backend", cfg.StorageBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence: durable backend behind the write-behind buffer
	backend, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open project storage: %v", err)
	}
	defer backend.Close()
	repo := writebehind.New(backend.Repo, cfg.WriteBehindDelay, logger)

	// Media (optional)
	var mediaManager *media.Manager
	if cfg.MinIOEndpoint != "" {
		client, err := media.NewMinIOClient(cfg)
		if err != nil {
			log.Fatalf("Failed to create MinIO client: %v", err)
		}
		mediaManager = media.NewManager(client, cfg.MinIOBucket, cfg.PreviewURLTTL, logger)
		if err := mediaManager.EnsureBucket(ctx); err != nil {
			log.Fatalf("Failed to prepare media bucket: %v", err)
		}
		logger.Info("media storage connected", "endpoint", cfg.MinIOEndpoint, "bucket", cfg.MinIOBucket)
	} else {
		logger.Warn("MINIO_ENDPOINT not set; media uploads disabled")
	}

	// Settings
	settingsProvider := settings.NewProvider(cfg.SettingsFile, logger)
	if err := settingsProvider.Watch(ctx); err != nil {
		logger.Warn("settings file will not be watched", "error", err)
	}

	// Project store and autosave
	storeConfig := project.StoreConfig{
		Repo:      repo,
		Validator: validation.NewImportValidator(),
		Logger:    logger,
		Language:  cfg.DefaultLanguage,
	}
	if mediaManager != nil {
		storeConfig.Media = mediaManager
	}
	store := project.NewStore(storeConfig)
	store.Load(ctx)

	autosave := project.NewAutosaveScheduler(store, repo, settingsProvider, cfg.AutosaveDelay, logger)
	autosave.Start()

	// Handlers
	handlers := handler.Handlers{
		Projects: handler.NewProjectHandler(store, logger),
		Current:  handler.NewCurrentHandler(store, logger),
		Import:   handler.NewImportHandler(store, logger),
		Settings: handler.NewSettingsHandler(settingsProvider, logger),
	}
	if mediaManager != nil {
		handlers.Media = handler.NewMediaHandler(store, mediaManager, mediaManager, logger)
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handlers)

	// Build middleware chain
	// Order: CORS → Recovery → Auth → Routes
	var h http.Handler = mux
	if cfg.AuthJWKSURL != "" {
		verifier, err := auth.NewJWTVerifier(cfg.AuthJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer verifier.Close()
		h = middleware.AuthMiddleware(verifier, logger)(h)
	} else {
		logger.Warn("AUTH_JWKS_URL not set; API is unauthenticated")
	}
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  60 * time.Second, // media uploads
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	shutdownPersistence(shutdownCtx, autosave, repo, logger)

	logger.Info("server stopped")
}

// shutdownPersistence fires any armed autosave and drains buffered writes
// before the backend connection is closed
func shutdownPersistence(ctx context.Context, autosave *project.AutosaveScheduler, repo *writebehind.Gateway, logger *slog.Logger) {
	if err := autosave.Close(ctx); err != nil {
		logger.Error("final autosave flush failed", "error", err)
	}
	if err := repo.Close(ctx); err != nil {
		logger.Error("write-behind close failed", "error", err)
	}
}
