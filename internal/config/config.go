package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"resume_rewards/internal/logger"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	AppPort       string
	AppVersion    string
	DatabaseURL   string
	// LedgerBackend - postgres или memory (для локального запуска без БД)
	LedgerBackend string
	AutoMigrate   bool
	JWTSecret     string
	JWTTTL        time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel string
	LogJSON  bool

	CatalogPath    string
	AllowedOrigins []string

	// Rate limits
	APIRateLimit    int
	APIRateWindow   time.Duration
	SpendRateLimit  int
	SpendRateWindow time.Duration

	LeaderboardCacheTTL time.Duration
	LeaderboardRefresh  time.Duration
	LedgerMaxRetries    int
	AISuggestionCost    int64
}

// Загрузка конфига из env; сервер без секрета или БД не стартует
func Load() *Config {
	cfg, err := FromEnv()
	if err != nil {
		logger.Fatal("invalid config", "error", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal("invalid config", "error", err)
	}
	return cfg
}

// FromEnv reads .env (if present) and the environment, applying defaults.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()

	backend := strings.ToLower(getString("LEDGER_BACKEND", BackendPostgres))
	if backend != BackendPostgres && backend != BackendMemory {
		return nil, errors.New("LEDGER_BACKEND must be postgres or memory")
	}

	return &Config{
		AppPort:       getString("APP_PORT", "8080"),
		AppVersion:    getString("APP_VERSION", "dev"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		LedgerBackend: backend,
		AutoMigrate:   getBool("AUTO_MIGRATE", false),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTTTL:        getSeconds("JWT_TTL_SECONDS", 7*24*time.Hour),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		LogLevel: getString("LOG_LEVEL", "info"),
		LogJSON:  getBool("LOG_JSON", false),

		CatalogPath:    os.Getenv("CATALOG_PATH"),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"*"}),

		APIRateLimit:    getInt("API_RATE_LIMIT", 120),   // запросов за ->
		APIRateWindow:   getSeconds("API_RATE_WINDOW_SECONDS", time.Minute),
		SpendRateLimit:  getInt("SPEND_RATE_LIMIT", 30), // списаний за ->
		SpendRateWindow: getSeconds("SPEND_RATE_WINDOW_SECONDS", time.Minute),

		LeaderboardCacheTTL: getSeconds("LEADERBOARD_CACHE_TTL_SECONDS", time.Minute),
		LeaderboardRefresh:  getSeconds("LEADERBOARD_REFRESH_SECONDS", 30*time.Second),
		LedgerMaxRetries:    getInt("LEDGER_MAX_RETRIES", 3),
		AISuggestionCost:    int64(getInt("AI_SUGGESTION_COST", 5)),
	}, nil
}

// ValidateServer checks what the HTTP server cannot run without.
func (c *Config) ValidateServer() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	return c.ValidateStore()
}

// ValidateStore checks the ledger backend settings.
func (c *Config) ValidateStore() error {
	if c.LedgerBackend == BackendPostgres && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	return nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getSeconds(key string, def time.Duration) time.Duration {
	if n := getInt(key, 0); n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

// Списки через запятую
func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
