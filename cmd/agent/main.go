package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reelforge/reelforge-agent/internal/api"
	"github.com/reelforge/reelforge-agent/internal/archive"
	"github.com/reelforge/reelforge-agent/internal/config"
	"github.com/reelforge/reelforge-agent/internal/logging"
	"github.com/reelforge/reelforge-agent/internal/playback"
	"github.com/reelforge/reelforge-agent/internal/remote"
	"github.com/reelforge/reelforge-agent/internal/session"
	"github.com/reelforge/reelforge-agent/internal/store"
	"github.com/reelforge/reelforge-agent/internal/ui"
)

var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	// A local .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ArtifactsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create artifacts dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting reelforge agent", "version", Version, "data_dir", logging.SanitizePath(cfg.DataDir()))

	database, err := store.Open(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := store.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                   REELFORGE AGENT v0.1.0                  ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	client := remote.NewHTTPClient(cfg.ServiceBaseURL(), cfg.ServiceToken(), logger)
	client.SetDeviceID(deviceID)
	logger.Info("generation service configured", "base_url", cfg.ServiceBaseURL())

	var archiver archive.Archiver
	if cfg.ArtifactBackend() == "minio" {
		a, err := archive.NewMinIOArchiver(archive.Options{
			Endpoint:  cfg.MinIOEndpoint(),
			AccessKey: cfg.MinIOAccessKey(),
			SecretKey: cfg.MinIOSecretKey(),
			Bucket:    cfg.MinIOBucket(),
			UseSSL:    cfg.MinIOUseSSL(),
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to configure artifact archive: %w", err)
		}
		archiver = a
		logger.Info("artifact archiving enabled", "bucket", cfg.MinIOBucket())
	}

	sess := session.New(session.Options{
		Client:              client,
		Repo:                repo,
		Archiver:            archiver,
		ArtifactsDir:        cfg.ArtifactsDir(),
		JobPollInterval:     cfg.JobPollInterval(),
		TrainingInterval:    cfg.TrainingPollInterval(),
		TrainingMaxAttempts: cfg.TrainingMaxAttempts(),
		Logger:              logger,
	})
	defer sess.Close()

	apiServer := api.NewServer(api.ServerConfig{
		Port:         cfg.Port(),
		Session:      sess,
		Repository:   repo,
		Client:       client,
		Playback:     playback.NewServer(cfg.ArtifactsDir(), logger),
		ArtifactsDir: cfg.ArtifactsDir(),
		Logger:       logger,
		StartTime:    startTime,
		DeviceID:     deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Session: sess,
			Logger:  logger,
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(repo store.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo store.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
