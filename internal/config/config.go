package config // package config loads application configuration from environment variables

import (
    "log"
    "os"
)

// Config holds the base settings every process needs.  Each field maps to
// one environment variable and all but DB_PASS are required.
type Config struct {
    Env       string // application environment (dev/test/prod)
    Port      string // HTTP port to listen on
    DBUser    string
    DBPass    string // may be empty
    DBHost    string
    DBPort    string
    DBName    string
    JWTSecret string // HS256 secret shared with the identity service
}

// Load reads the base configuration.  Missing required variables terminate
// the process through must().
func Load() Config {
    return Config{
        Env:       must("APP_ENV"),
        Port:      must("APP_PORT"),
        DBUser:    must("DB_USER"),
        DBPass:    os.Getenv("DB_PASS"),
        DBHost:    must("DB_HOST"),
        DBPort:    must("DB_PORT"),
        DBName:    must("DB_NAME"),
        JWTSecret: must("JWT_SECRET"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
