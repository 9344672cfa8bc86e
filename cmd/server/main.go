package main

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/quizdash/quizdash-backend/internal/config"
	"github.com/quizdash/quizdash-backend/internal/httpapi"
	"github.com/quizdash/quizdash-backend/internal/hub"
	"github.com/quizdash/quizdash-backend/internal/ws"
)

func main() {
	cfg := config.Load()

	logger := buildLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	if cfg.HostSecret == "" {
		logger.Warn("HOST_SECRET not set, host capability disabled")
	}

	ctx := context.Background()
	h := hub.NewHub(ctx, clockwork.NewRealClock(), logger)

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, ws.NewGate(cfg.HostSecret), logger)

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func buildLogger(env string) *zap.Logger {
	if env == "production" {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}
