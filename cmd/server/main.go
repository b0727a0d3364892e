package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"coursehub/internal/config"
	"coursehub/internal/db"
	"coursehub/internal/logger"
	"coursehub/internal/router"
	"coursehub/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer appLog.Sync()

	gin.SetMode(cfg.GinMode)

	// Initialize Database
	database, err := db.Open(cfg, appLog)
	if err != nil {
		appLog.Fatal("Failed to open database", "error", err)
	}

	if cfg.AuthDevMode {
		appLog.Warn("AUTH_DEV_MODE enabled: login codes are not verified with WeChat")
	}
	svc, err := services.NewContainer(database, cfg, services.NewCodeExchanger(cfg), appLog)
	if err != nil {
		appLog.Fatal("Failed to init services", "error", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(svc, cfg.CORSOrigins, appLog),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		appLog.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Server shutdown failed", "error", err)
	}
	appLog.Info("Server stopped")
}
