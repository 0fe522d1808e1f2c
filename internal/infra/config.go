package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
// It is read-only after initialization; jobs never share mutable state beyond it.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	StoragePath string

	AllowedOrigins []string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	QwenAPIKey  string
	QwenModel   string
	QwenBaseURL string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	LivepeerAPIKey  string
	LivepeerBaseURL string

	// ProviderOrder ranks transformation providers; the fallback chain tries
	// them in this order.
	ProviderOrder []string

	// Poll policy. Interval is shared; attempt budgets scale with expected
	// media size (images short, clips long).
	PollInterval         time.Duration
	ImagePollAttempts    int
	ClipPollAttempts     int
	StreamConfigAttempts int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StoragePath: getEnv("STORAGE_PATH", "./storage"),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		QwenAPIKey:  os.Getenv("DASHSCOPE_API_KEY"),
		QwenModel:   getEnv("QWEN_IMAGE_MODEL", "qwen-image-edit"),
		QwenBaseURL: getEnv("DASHSCOPE_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		LivepeerAPIKey:  os.Getenv("LIVEPEER_API_KEY"),
		LivepeerBaseURL: getEnv("LIVEPEER_BASE_URL", "https://livepeer.studio/api"),

		ProviderOrder: splitList(getEnv("TRANSFORM_PROVIDER_ORDER", "qwen,gemini")),

		PollInterval:         time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)),
		ImagePollAttempts:    getEnvInt("IMAGE_POLL_ATTEMPTS", 20),
		ClipPollAttempts:     getEnvInt("CLIP_POLL_ATTEMPTS", 30),
		StreamConfigAttempts: getEnvInt("STREAM_CONFIG_ATTEMPTS", 10),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if len(cfg.ProviderOrder) == 0 {
		return nil, fmt.Errorf("TRANSFORM_PROVIDER_ORDER must name at least one provider")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
