package httpiface

import (
	"github.com/labstack/echo/v4"
)

func Register(e *echo.Echo, h *Handler, avatars *AvatarProxy) {
	e.GET("/auth/hello", h.Hello)

	e.GET("/auth/tiktok", h.SignInCallback)
	e.GET("/auth/tiktok/login", h.Login)
	e.GET("/auth/tiktok/avatar", avatars.Serve)
	e.POST("/auth/tiktok/refresh", h.Refresh)

	e.GET("/auth/connect/tiktok", h.ConnectCallback)
	e.GET("/auth/connect/tiktok/login", h.ConnectLogin)

	e.POST("/auth/firebase", h.FirebaseExchange)
}
