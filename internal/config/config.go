package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	Port       int
	DBURL      string
	DBMaxConns int

	// StoreDriver selects the credential store: "postgres" or "memory".
	StoreDriver string

	AllowedOrigins []string
	MaxBodyBytes   int64
	BcryptCost     int

	OTelEnabled  bool
	OTLPEndpoint string

	// ProfileCacheTTL of zero disables the profile cache.
	ProfileCacheTTL time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	SeedAdminEmail    string
	SeedAdminPassword string
	SeedTestEmail     string
	SeedTestPassword  string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:        getEnv("APP_ENV", "dev"),
		Port:       getEnvInt("PORT", 8080),
		DBURL:      getEnv("DATABASE_URL", buildDBURL()),
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 5),

		StoreDriver: getEnv("STORE_DRIVER", "postgres"),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		MaxBodyBytes:   int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		BcryptCost:     getEnvInt("BCRYPT_COST", 10),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		ProfileCacheTTL: time.Duration(getEnvInt("PROFILE_CACHE_TTL_SECONDS", 30)) * time.Second,
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),

		SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@system.com"),
		SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", "Admin123!"),
		SeedTestEmail:     getEnv("SEED_TEST_EMAIL", "test@test.com"),
		SeedTestPassword:  getEnv("SEED_TEST_PASSWORD", "Test123!"),
	}
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "authhub")
	pass := getEnv("DB_PASSWORD", "authhub")
	name := getEnv("DB_NAME", "authhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
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
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)

		if err != nil {
			return fallback
		}

		return b
	}
	return fallback
}

// comma separated, blanks dropped
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}

	return out
}
