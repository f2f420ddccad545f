package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevJWTSecret is only good for local work; prod refuses to start with it.
const DevJWTSecret = "dev-secret-change-me"

var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set to a non-default value in prod")

type Config struct {
	Env     string
	Port    int
	DBURL   string
	Storage string // "postgres" | "memory"

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionCookieName string
	SessionTTLHours   int

	JWTSecret           string
	JWTAccessTTLMinutes int

	GeminiAPIKey            string
	GeminiModel             string
	GatewayTimeoutSeconds   int
	GatewayMaxRetries       int
	GatewayFailureThreshold int
	GatewayCooldownSeconds  int

	DemoEnabled         bool
	DemoTokenTTLMinutes int
	PublicBaseURL       string

	CORSAllowedOrigins []string
	AuthRateLimit      int
	MessageRateLimit   int
	MaxBodyBytes       int64

	OTLPEndpoint     string
	TraceSampleRatio float64
}

func Load() Config {
	// a missing .env is fine, real deployments use the environment directly
	_ = godotenv.Load()

	return Config{
		Env:     getEnv("APP_ENV", "dev"),
		Port:    getEnvInt("PORT", 8080),
		DBURL:   buildDBURL(),
		Storage: strings.ToLower(getEnv("STORAGE", "postgres")),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "session_id"),
		SessionTTLHours:   getEnvInt("SESSION_TTL_HOURS", 24),

		JWTSecret:           getEnv("JWT_SECRET", DevJWTSecret),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 60),

		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GatewayTimeoutSeconds:   getEnvInt("GATEWAY_TIMEOUT_SECONDS", 20),
		GatewayMaxRetries:       getEnvInt("GATEWAY_MAX_RETRIES", 1),
		GatewayFailureThreshold: getEnvInt("GATEWAY_FAILURE_THRESHOLD", 5),
		GatewayCooldownSeconds:  getEnvInt("GATEWAY_COOLDOWN_SECONDS", 30),

		DemoEnabled:         getEnvBool("DEMO_ENABLED", false),
		DemoTokenTTLMinutes: getEnvInt("DEMO_TOKEN_TTL_MINUTES", 10),
		PublicBaseURL:       strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		AuthRateLimit:      getEnvInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		MessageRateLimit:   getEnvInt("MESSAGE_RATE_LIMIT_PER_MINUTE", 30),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1),
	}
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c Config) JWTAccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c Config) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutSeconds) * time.Second
}

func (c Config) GatewayCooldown() time.Duration {
	return time.Duration(c.GatewayCooldownSeconds) * time.Second
}

func (c Config) DemoTokenTTL() time.Duration {
	return time.Duration(c.DemoTokenTTLMinutes) * time.Minute
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// Validate catches settings that are fine in dev and unsafe in prod.
func (c Config) Validate() error {
	if c.IsProd() && (c.JWTSecret == "" || c.JWTSecret == DevJWTSecret) {
		return ErrInsecureJWTSecret
	}
	return nil
}

func buildDBURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "medtranslate")
	pass := getEnv("DB_PASSWORD", "medtranslate")
	name := getEnv("DB_NAME", "medtranslate")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

// WithTimeout bounds work derived from parent, typically the request context.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}

// RequestTimeout is the budget for a request that may call the model:
// every attempt plus backoff headroom.
func (c Config) RequestTimeout() time.Duration {
	attempts := c.GatewayMaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	return time.Duration(attempts)*c.GatewayTimeout() + 5*time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env value, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env value, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid boolean env value, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
