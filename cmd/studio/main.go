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

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/api"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/billing"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/cloud"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/config"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/db"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/editor"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/encoder"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/logging"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/playback"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/probe"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, dir := range []string{cfg.DataDir(), cfg.MediaDir(), cfg.ExportDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel(), cfg.LogFormat())
	logger.Info("starting allinhere studio", "version", config.Version, "commit", config.GitCommit, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := store.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                 ALLINHERE STUDIO v%-23s ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()
	logger.Debug("auth token ready", "token", logging.SanitizeToken(authToken))

	var (
		auth      cloud.AuthService
		blobs     cloud.BlobService
		enc       cloud.EncoderService
		sync      cloud.StorageService
		functions cloud.FunctionInvoker
	)
	local := &encoder.Router{
		ByFormat: map[export.Format]cloud.EncoderService{
			export.FormatEDL: encoder.NewLocal(cfg.ExportDir(), repo, logger),
		},
		Default: encoder.NewSimulated(500*time.Millisecond, logger),
	}

	if cfg.CloudEnabled() {
		client := cloud.NewHTTPClient(cfg.CloudURL(), cfg.CloudToken(), logger)
		auth, blobs, sync, functions = client.Auth(), client.Blobs(), client.Storage(), client
		local.Default = client
		enc = local
		logger.Info("cloud backend enabled", "base_url", cfg.CloudURL())
	} else {
		userID, err := ensureLocalUser(repo)
		if err != nil {
			return fmt.Errorf("failed to ensure local user: %w", err)
		}
		stub := cloud.NewStubAuth(entitlement.User{
			ID:     userID,
			Role:   entitlement.RoleOwner,
			Status: entitlement.StatusActive,
			Plan:   entitlement.PlanBasic,
		}, logger)
		auth, functions = stub, stub
		fileBlobs, err := store.NewFileBlobs(cfg.MediaDir())
		if err != nil {
			return fmt.Errorf("failed to open media store: %w", err)
		}
		blobs, enc = fileBlobs, local
		logger.Info("running offline", "user_id", userID, "media_dir", cfg.MediaDir())
	}

	pay := cfg.Payment()
	provider, err := billing.NewProvider(pay.Provider, billing.Options{
		Functions:      functions,
		PublishableKey: pay.PublishableKey,
		PayPalClientID: pay.PayPalClientID,
		PayPalMode:     pay.PayPalMode,
		Logger:         logger,
	})
	if err != nil {
		logger.Warn("payment provider unavailable, subscriptions disabled", "provider", pay.Provider, "error", err)
	}

	var prober api.MediaProber
	if p, err := probe.NewProber(probe.Config{Logger: logger}); err != nil {
		logger.Warn("ffprobe unavailable, uploads need an explicit duration", "error", err)
	} else {
		prober = p
	}

	tracker := export.NewTracker(repo, logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:            cfg.Port(),
		Session:         editor.NewSession(cfg.HistoryDepth(), logger),
		Repo:            repo,
		Auth:            auth,
		Blobs:           blobs,
		Encoder:         enc,
		Tracker:         tracker,
		Gate:            entitlement.NewGate(cfg.PlanLimits),
		Billing:         provider,
		Playback:        playback.NewServer(cfg.ExportDir(), logger),
		Prober:          prober,
		Logger:          logger,
		StartTime:       startTime,
		Version:         config.Version,
		Sync:            sync,
		PixelsPerSecond: cfg.PixelsPerSecond(),
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := tracker.Shutdown(shutdownCtx); err != nil {
		logger.Error("export jobs did not stop in time", "error", err)
	}
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureAuthToken(repo *store.SQLiteRepository) (string, error) {
	return ensureConfigValue(repo, api.AuthTokenKey, 32)
}

func ensureLocalUser(repo *store.SQLiteRepository) (string, error) {
	return ensureConfigValue(repo, "local_user_id", 16)
}

// ensureConfigValue returns the stored value for key, generating a random
// hex value of n bytes on first run.
func ensureConfigValue(repo *store.SQLiteRepository, key string, n int) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, key)
	if err == nil && existing != "" {
		return existing, nil
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	value := hex.EncodeToString(buf)

	if err := repo.SetConfig(ctx, key, value); err != nil {
		return "", err
	}
	return value, nil
}
