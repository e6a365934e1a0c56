package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Port           string
	StoreDriver    string
	DatabaseURL    string
	SslCertPath    string
	JWTSecret      string
	AllowedOrigins []string

	LLMProvider       string
	AIAPIKey          string
	GenModel          string
	OpenAIBaseURL     string
	OpenAIAPIKey      string
	OpenAIModel       string
	GenerationTimeout time.Duration

	RedisAddr          string
	RedisPassword      string
	RateLimitPerMinute int

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	BillingWebhookSecret string
	SignInPath           string
	BillingPath          string

	LogLevel string
	LogDev   bool
}

// LoadConfig loads the environment variables and returns the config
func LoadConfig() (*Config, error) {

	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SslCertPath:    getEnv("SSL_CERT_PATH", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		AIAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GenModel:          getEnv("GEN_MODEL", "gemini-1.5-flash"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 45*time.Second),

		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 10),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", ""),

		BillingWebhookSecret: getEnv("BILLING_WEBHOOK_SECRET", ""),
		SignInPath:           getEnv("SIGN_IN_PATH", "/sign-in"),
		BillingPath:          getEnv("BILLING_PATH", "/pricing"),

		LogLevel: getEnv("LOG_LEVEL", ""),
		LogDev:   getEnv("LOG_DEV", "") == "1",
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL not set")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER %q not supported", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET not set")
	}
	switch c.LLMProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("LLM_PROVIDER %q not supported", c.LLMProvider)
	}
	return nil
}

// S3Enabled reports whether content export has everything it needs.
func (c *Config) S3Enabled() bool {
	return c.AwsAccessKey != "" && c.AwsSecretKey != "" && c.BucketName != ""
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// getEnvDuration accepts Go durations ("45s") or bare seconds ("45").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(getEnv(key, ""))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
