/*
config.go - Server configuration

PURPOSE:
  Collects every runtime setting in one struct. Each command-line flag takes
  its default from an environment variable, and a .env file in the working
  directory is loaded first when present. Precedence is therefore

    flag > process env > .env > built-in default

SETTINGS:
  -port           PORT              HTTP port (8080)
  -db             DB_PATH           SQLite path, ":memory:" allowed (vacations.db)
  -jwt-secret     JWT_SECRET        HMAC secret for bearer tokens
  -fallback-user  FALLBACK_USER_ID  Identity used when no token is sent ("" = off)
  -cors-origins   CORS_ORIGINS      Comma-separated allowed origins
  -seed-users     SEED_USERS        Seed demo users into an empty directory (true)
  -dev            DEV               Development logging (false)
*/
package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           int
	DBPath         string
	JWTSecret      string
	FallbackUserID string
	CORSOrigins    []string
	SeedUsers      bool
	Dev            bool
}

const defaultCORSOrigins = "http://localhost:5173,http://localhost:8080"

// Load reads .env, the environment and then args (without the program name).
func Load(args []string) (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	fs := flag.NewFlagSet("vacation-tracker", flag.ContinueOnError)

	var (
		cfg     Config
		origins string
	)
	fs.IntVar(&cfg.Port, "port", getEnvInt("PORT", 8080), "HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", getEnv("DB_PATH", "vacations.db"), "SQLite database path")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", getEnv("JWT_SECRET", ""), "HMAC secret used to verify bearer tokens")
	fs.StringVar(&cfg.FallbackUserID, "fallback-user", getEnv("FALLBACK_USER_ID", ""), "user id assumed when a request carries no token")
	fs.StringVar(&origins, "cors-origins", getEnv("CORS_ORIGINS", defaultCORSOrigins), "comma-separated CORS origins")
	fs.BoolVar(&cfg.SeedUsers, "seed-users", getEnvBool("SEED_USERS", true), "seed demo users when the directory is empty")
	fs.BoolVar(&cfg.Dev, "dev", getEnvBool("DEV", false), "development logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.CORSOrigins = splitList(origins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if c.DBPath == "" {
		return errors.New("db path is required")
	}
	if c.JWTSecret == "" && c.FallbackUserID == "" {
		return errors.New("either a jwt secret or a fallback user is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
