// Package main is the entry point for the contact manager server.
//
// main's only job: read configuration, create the logger, start the app.
// All actual logic lives in internal/.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/contact-manager/internal/server"
)

// Defaults, overridable via environment.
const (
	defaultPort        = 8080
	defaultDBPath      = "data/contacts.db"
	defaultSessionTTL  = 24 * time.Hour
	defaultRealtimeTTL = 60 * time.Second
)

func main() {
	// .env is optional — env vars set in the shell win either way.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	port := defaultPort
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := defaultDBPath
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Two secrets for two token families. Generate each with e.g.:
	//   openssl rand -hex 32
	// They must be DIFFERENT values — a session token must never verify as
	// a realtime token or vice versa.
	sessionSecret := os.Getenv("SESSION_SECRET")
	realtimeSecret := os.Getenv("REALTIME_SECRET")
	if sessionSecret == "" || realtimeSecret == "" {
		logger.Error("SESSION_SECRET and REALTIME_SECRET must both be set")
		os.Exit(1)
	}
	if sessionSecret == realtimeSecret {
		logger.Warn("SESSION_SECRET and REALTIME_SECRET are identical — configure distinct secrets")
	}

	sessionTTL := durationEnv(logger, "SESSION_TTL", defaultSessionTTL)
	realtimeTTL := durationEnv(logger, "REALTIME_TTL", defaultRealtimeTTL)

	cfg := server.Config{
		Port:           port,
		DBPath:         dbPath,
		SessionSecret:  sessionSecret,
		RealtimeSecret: realtimeSecret,
		SessionTTL:     sessionTTL,
		RealtimeTTL:    realtimeTTL,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// durationEnv reads a time.Duration env var ("24h", "45s", ...) with a default.
func durationEnv(logger *slog.Logger, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Error("invalid duration value", slog.String("var", key), slog.String("value", v))
		os.Exit(1)
	}
	return d
}
