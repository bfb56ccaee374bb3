package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL string
	LogLevel   string
	LogFormat  string
	Language   string

	HTTPTimeoutSeconds int
	APIRateLimitRPS    float64
	APIRateLimitBurst  int
	BreakerEnabled     bool

	SessionBackend string
	SessionPath    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	ReceiptsPostgresDSN string

	NATSURL     string
	NATSSubject string

	MetricsAddr string

	OTELEndpoint string
	OTELInsecure bool

	PreviewDir       string
	MaxImages        int
	MaxImageBytes    int64
	PageSize         int
	SearchMinLength  int
	SearchDebounceMS int
	FormResetDelayMS int

	StubAPIPort   string
	StubJWTSecret string
}

func Load() Config {
	return Config{
		APIBaseURL: strings.TrimRight(mustEnv("API_BASE_URL", "http://localhost:8080"), "/"),
		LogLevel:   mustEnv("LOG_LEVEL", "info"),
		LogFormat:  mustEnv("LOG_FORMAT", "json"),
		Language:   mustEnv("LANGUAGE", "es"),

		HTTPTimeoutSeconds: mustEnvInt("HTTP_TIMEOUT_SECONDS", 30),
		APIRateLimitRPS:    mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst:  mustEnvInt("API_RATE_LIMIT_BURST", 40),
		BreakerEnabled:     mustEnvBool("BREAKER_ENABLED", true),

		SessionBackend: strings.ToLower(mustEnv("SESSION_BACKEND", "file")),
		SessionPath:    mustEnv("SESSION_PATH", defaultSessionPath()),
		RedisAddr:      mustEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  mustEnv("REDIS_PASSWORD", ""),
		RedisDB:        mustEnvInt("REDIS_DB", 0),

		ReceiptsPostgresDSN: mustEnv("RECEIPTS_POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "complaint.submitted"),

		MetricsAddr: mustEnv("METRICS_ADDR", ""),

		OTELEndpoint: mustEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure: mustEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),

		PreviewDir:       mustEnv("PREVIEW_DIR", ""),
		MaxImages:        mustEnvInt("MAX_IMAGES", 5),
		MaxImageBytes:    int64(mustEnvInt("MAX_IMAGE_BYTES", 5<<20)),
		PageSize:         mustEnvInt("PAGE_SIZE", 10),
		SearchMinLength:  mustEnvInt("SEARCH_MIN_LENGTH", 2),
		SearchDebounceMS: mustEnvInt("SEARCH_DEBOUNCE_MS", 300),
		FormResetDelayMS: mustEnvInt("FORM_RESET_DELAY_MS", 3000),

		StubAPIPort:   mustEnv("STUB_API_PORT", "8080"),
		StubJWTSecret: mustEnv("STUB_JWT_SECRET", ""),
	}
}

// LoadDotEnv reads the given .env files (or ./.env) into the process
// environment. Variables already set win; missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "./data/session"
	}
	return dir + string(os.PathSeparator) + "complaint-desk"
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
