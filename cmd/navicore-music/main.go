package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/navicore/navicore-music/internal/auth"
	"github.com/navicore/navicore-music/internal/config"
	"github.com/navicore/navicore-music/internal/database"
	"github.com/navicore/navicore-music/internal/ingest"
	"github.com/navicore/navicore-music/internal/media"
	"github.com/navicore/navicore-music/internal/server"
	"github.com/navicore/navicore-music/internal/storage"
	"github.com/navicore/navicore-music/internal/tunnel"
)

func main() {
	configPath := "./config.toml"

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load .env if present so env overrides work without exporting
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			logger.WithError(err).Warn("Could not load .env file")
		}
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	configureLogger(logger, &cfg.Logging)

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	// Seed a default admin account on first run
	if err := seedDefaultAdmin(db, logger); err != nil {
		logger.WithError(err).Fatal("Error creating default admin user")
	}

	// Object storage client; a noop client is returned when unconfigured
	objects := storage.NewClient(storage.Config{
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
	}, logger)
	if !objects.Enabled() {
		logger.Warn("Object storage not configured; streaming and uploads are disabled")
	}

	gateway := media.NewGateway(db, objects, time.Duration(cfg.Storage.URLExpirySeconds)*time.Second, logger)
	tokens := auth.NewTokenIssuer(cfg.Auth.TokenSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	// Optional local drop-directory ingest
	if cfg.Ingest.Enabled {
		extractor := ingest.NewExtractor(cfg.Ingest.SupportedFormats, logger)
		watcher := ingest.NewWatcher(db, gateway, extractor, cfg.Ingest.DropDir, logger)
		if cfg.Ingest.ScanOnStartup {
			if err := watcher.ScanOnce(context.Background()); err != nil {
				logger.WithError(err).Warn("Startup ingest scan failed")
			}
		}
		if err := watcher.Start(); err != nil {
			logger.WithError(err).Warn("Could not start ingest watcher")
		} else {
			defer watcher.Stop()
		}
	}

	apiServer := server.NewServer(cfg, db, gateway, objects, tokens, logger)

	// Optional ngrok tunnel
	tunnelSvc, err := tunnel.NewService(&cfg.Ngrok, logger)
	if err != nil {
		logger.WithError(err).Warn("Tunnel service not available")
		tunnelSvc = nil
	}
	if tunnelSvc != nil {
		if err := tunnelSvc.StartTunnel(context.Background(), "http://"+cfg.GetAddress()); err != nil {
			logger.WithError(err).Warn("Could not start ngrok tunnel")
		} else {
			defer tunnelSvc.Stop()
		}
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.WithError(err).Error("API server stopped")
			c <- syscall.SIGTERM
		}
	}()

	<-c

	logger.Info("Received shutdown signal")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Error during shutdown")
	}
}

// configureLogger applies the configured level and format.
func configureLogger(logger *logrus.Logger, cfg *config.LoggingConfig) {
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if cfg.File != "" {
		if f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			logger.SetOutput(f)
		} else {
			logger.WithError(err).Warn("Could not open log file, using stderr")
		}
	}
}

// seedDefaultAdmin creates an admin account on an empty user table so the
// catalog is administrable out of the box. The generated password is logged
// once; change it.
func seedDefaultAdmin(db *database.Database, logger *logrus.Logger) error {
	count, err := db.CountUsers()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
	}

	user, err := db.CreateUser("admin", "admin@localhost", password, true)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"username": user.Username,
		"user_id":  user.ID,
	}).Warn("Created default admin user; set ADMIN_PASSWORD and change the default credentials")
	return nil
}
