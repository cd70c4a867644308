package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port string

	ClientKey    string
	ClientSecret string
	Scope        string

	// Fixed redirect URIs; when empty they are derived from request headers.
	SignInRedirectURI  string
	ConnectRedirectURI string
	// BasePath is the public prefix the routes are reachable under.
	BasePath string
	// AppScheme is the URI scheme of the mobile client redirects.
	AppScheme string

	FirebaseProjectID   string
	FirebaseClientEmail string
	FirebasePrivateKey  string

	BackendTokenSecret string
	LogLevel           string
}

// Load reads environment variables (after an optional .env file) and applies defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("failed to load .env")
	}
	return Config{
		Port:                getEnv("PORT", "3000"),
		ClientKey:           os.Getenv("TIKTOK_CLIENT_KEY"),
		ClientSecret:        os.Getenv("TIKTOK_CLIENT_SECRET"),
		Scope:               getEnv("TIKTOK_SCOPE", "user.info.basic"),
		SignInRedirectURI:   os.Getenv("TIKTOK_REDIRECT_URI"),
		ConnectRedirectURI:  os.Getenv("TIKTOK_CONNECT_REDIRECT_URI"),
		BasePath:            getEnv("PUBLIC_BASE_PATH", "/api"),
		AppScheme:           getEnv("PUBLIC_APP_SCHEME", "reviz"),
		FirebaseProjectID:   os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseClientEmail: os.Getenv("FIREBASE_CLIENT_EMAIL"),
		FirebasePrivateKey:  os.Getenv("FIREBASE_PRIVATE_KEY"),
		BackendTokenSecret:  os.Getenv("BACKEND_TOKEN_SECRET"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
