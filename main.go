package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"restaurant-chatbot/config"
	"restaurant-chatbot/db"
	"restaurant-chatbot/server"
	"restaurant-chatbot/services"

	"go.uber.org/zap"
)

const (
	sessionTTL      = 30 * time.Minute
	janitorInterval = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(cfg)
		return
	}

	if err := db.Init(cfg.DB); err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer db.Close()

	// Optional auto-migration (useful in production and for fresh DBs).
	// Set AUTO_MIGRATE=1 (or "true") to enable.
	if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
		if err := applyMigrations(context.Background(), false); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	sessions := services.NewMemorySessionStore(sessionTTL)
	sessions.StartJanitor(janitorInterval)
	defer sessions.Stop()

	menu := services.NewPgMenuStore()
	orders := services.NewPgOrderStore()
	gateway := services.NewPaystack(cfg.Paystack)
	chat := services.NewChat(menu, orders, sessions, gateway, logger)

	router := server.NewRouter(chat, orders, menu, gateway, cfg.Server.StaticDir, logger)
	srv := server.New(cfg.Server.Port, router, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server shutdown failed", zap.Error(err))
	}

	logger.Info("server stopped gracefully")
}

func runMigrate(cfg *config.Config) {
	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := applyMigrations(context.Background(), true); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
