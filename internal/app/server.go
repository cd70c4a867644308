package app

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"
	"github.com/sirupsen/logrus"

	"tiktok-auth-bridge/internal/config"
	"tiktok-auth-bridge/internal/domain/oauth"
	"tiktok-auth-bridge/internal/infrastructure/firebase"
	"tiktok-auth-bridge/internal/infrastructure/session"
	"tiktok-auth-bridge/internal/infrastructure/store"
	"tiktok-auth-bridge/internal/infrastructure/tiktok"
	httpiface "tiktok-auth-bridge/internal/interface/http"
	"tiktok-auth-bridge/internal/pkg/logging"
	"tiktok-auth-bridge/internal/pkg/metrics"
)

// New wires the bridge into an Echo instance. Missing TikTok or Firebase
// configuration is logged and surfaces later as missing_configuration on the
// affected routes.
func New(ctx context.Context, cfg config.Config, log *logrus.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger = logging.NewSplitLogger()
	e.Logger.SetLevel(echoLevel(log.GetLevel()))

	if p := strings.Trim(cfg.BasePath, "/"); p != "" {
		// anchored: only a leading prefix is stripped, never one inside the query
		e.Pre(middleware.Rewrite(map[string]string{"^/" + p + "/*": "/$1"}))
	}
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger(log))

	if cfg.ClientKey == "" || cfg.ClientSecret == "" {
		log.Warn("TIKTOK_CLIENT_KEY or TIKTOK_CLIENT_SECRET not set; tiktok routes will fail")
	}
	client := &tiktok.Client{
		ClientKey:    cfg.ClientKey,
		ClientSecret: cfg.ClientSecret,
		HTTP:         &http.Client{Timeout: tiktok.DefaultTimeout},
	}

	issuer, err := firebase.New(ctx, firebase.Credentials{
		ProjectID:   cfg.FirebaseProjectID,
		ClientEmail: cfg.FirebaseClientEmail,
		PrivateKey:  cfg.FirebasePrivateKey,
	})
	if err != nil {
		log.WithError(err).Warn("firebase admin not configured")
	}

	if cfg.BackendTokenSecret == "" {
		log.Warn("BACKEND_TOKEN_SECRET not set; using an ephemeral signing key")
	}
	minter, err := session.NewMinter(cfg.BackendTokenSecret, session.DefaultTTL)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	uc := oauth.NewUseCase(client, store.NewMemory(), issuer, minter, cfg.Scope, log)

	h := &httpiface.Handler{
		UC: uc,
		Resolver: oauth.RedirectResolver{
			BasePath: cfg.BasePath,
			Static: map[string]string{
				oauth.SignInCallbackPath:  cfg.SignInRedirectURI,
				oauth.ConnectCallbackPath: cfg.ConnectRedirectURI,
			},
		},
		AppScheme: cfg.AppScheme,
		Metrics:   m,
	}
	avatars := httpiface.NewAvatarProxy(tiktok.DefaultTimeout, m)
	httpiface.Register(e, h, avatars)

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	return e, nil
}

// requestLogger logs the path only; callback query strings carry codes and ID tokens.
func requestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":  v.Method,
				"path":    v.URIPath,
				"status":  v.Status,
				"latency": v.Latency.String(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	})
}

func echoLevel(l logrus.Level) glog.Lvl {
	switch {
	case l >= logrus.DebugLevel:
		return glog.DEBUG
	case l == logrus.InfoLevel:
		return glog.INFO
	case l == logrus.WarnLevel:
		return glog.WARN
	default:
		return glog.ERROR
	}
}
