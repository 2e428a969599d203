package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ezchat/ezchat/config"
	"github.com/ezchat/ezchat/pkg/auth"
	"github.com/ezchat/ezchat/pkg/hub"
	"github.com/ezchat/ezchat/pkg/routes"
	"github.com/ezchat/ezchat/pkg/store"
	"github.com/ezchat/ezchat/pkg/tasks"

	_ "github.com/ezchat/ezchat/docs"
)

// @title EzChat API
// @version 1.0
// @description Phone-based chat backend with real-time chat sync and per-date task lists.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	logger.Info("Starting EzChat server",
		"port", cfg.Server.Port,
		"env", cfg.Server.Env)

	// 1. Initialize storage
	storage, err := store.NewStore(ctx, cfg.Database.URL, cfg.Redis.URL, logger)
	if err != nil {
		logger.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	if err := storage.InitSchema(); err != nil {
		logger.Error("Failed to initialize schema", "error", err)
		os.Exit(1)
	}

	go storage.StartCleanupWorker(1*time.Hour, 24*time.Hour*30)

	// 2. Authentication
	auth.InitJWT(cfg.JWT.Secret, cfg.JWT.Expiration)
	otp := auth.NewOTPManager(storage, &auth.LogSender{Logger: logger},
		cfg.OTP.CodeTTL, cfg.OTP.CodeLength, cfg.OTP.MaxAttempts, logger)

	// 3. Task lists
	taskMgr := tasks.NewManager(storage, logger)

	// 4. WebSocket hub
	wsHub := hub.NewHub(storage)
	go wsHub.Run()
	go wsHub.ListenToRedis()

	// 5. HTTP router and server
	router := routes.NewRouter(wsHub, storage, otp, taskMgr, cfg.JWT.Expiration, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.Info("Server is ready to accept connections", "addr", server.Addr)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
