package app

import (
	"strings"
	"time"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Login challenge parameters.
	CodeTTL    time.Duration
	CodeDigits int

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("GATEKEY_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("GATEKEY_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("GATEKEY_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("GATEKEY_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("GATEKEY_HTTP_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       EnvDuration("GATEKEY_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("GATEKEY_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("GATEKEY_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("GATEKEY_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("GATEKEY_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("GATEKEY_READINESS_REQUIRE_DB", false),

		CodeTTL:    EnvDuration("GATEKEY_CODE_TTL", 10*time.Minute),
		CodeDigits: EnvInt("GATEKEY_CODE_DIGITS", 6),

		CORSAllowedOrigins:   envStringList("GATEKEY_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("GATEKEY_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("GATEKEY_CORS_MAX_AGE_SECONDS", 600),
	}
}

func envStringList(key string) []string {
	raw := EnvString(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
