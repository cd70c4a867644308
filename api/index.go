package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"tiktok-auth-bridge/internal/app"
	"tiktok-auth-bridge/internal/config"
	"tiktok-auth-bridge/internal/pkg/logging"
)

var (
	once    sync.Once
	server  *echo.Echo
	initErr error
)

// Handler is the serverless entry point; every /api/* request lands here.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		cfg := config.Load()
		server, initErr = app.New(context.Background(), cfg, logging.Setup(cfg.LogLevel))
	})
	if initErr != nil {
		http.Error(w, `{"message":"internal_error"}`, http.StatusInternalServerError)
		return
	}
	server.ServeHTTP(w, r)
}
