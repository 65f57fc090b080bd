package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv        string
	Port          string
	PublicBaseURL string

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	RazorpayBaseURL       string
	GatewayTimeout        time.Duration

	UPIRecipientID  string
	UPIPayeeName    string
	UPIMerchantCode string

	RedisURL         string
	WebhookReplayTTL time.Duration

	CORSAllowedOrigins []string
	CreateRateMax      int
	CreateRateWindow   time.Duration
}

// Load reads configuration from environment variables and optional .env files.
// Missing gateway credentials or payee VPA are configuration errors: the
// process must not start serving traffic without them.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:        valueOrDefault(k.String("APP_ENV"), "development"),
		Port:          valueOrDefault(k.String("PORT"), "5000"),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(k.String("SERVER_URL")), "/"),

		RazorpayKeyID:         strings.TrimSpace(k.String("RAZORPAY_KEY_ID")),
		RazorpayKeySecret:     firstNonEmpty(k.String("RAZORPAY_KEY_SECRET"), k.String("RAZORPAY_SECRET_KEY")),
		RazorpayWebhookSecret: strings.TrimSpace(k.String("RAZORPAY_WEBHOOK_SECRET")),
		RazorpayBaseURL:       valueOrDefault(k.String("RAZORPAY_BASE_URL"), "https://api.razorpay.com"),
		GatewayTimeout:        parseDuration(k.String("RAZORPAY_TIMEOUT"), "10s"),

		UPIRecipientID:  firstNonEmpty(k.String("UPI_RECIPIENT_ID"), k.String("UPI_ID")),
		UPIPayeeName:    valueOrDefault(k.String("UPI_PAYEE_NAME"), "VendMaster"),
		UPIMerchantCode: strings.TrimSpace(k.String("UPI_MERCHANT_CODE")),

		RedisURL:         strings.TrimSpace(k.String("REDIS_URL")),
		WebhookReplayTTL: parseDuration(k.String("WEBHOOK_REPLAY_TTL"), "24h"),

		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CreateRateMax:      intOrDefault(k, "CREATE_RATE_MAX", 30),
		CreateRateWindow:   parseDuration(k.String("CREATE_RATE_WINDOW"), "1m"),
	}

	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = "http://localhost:" + strings.TrimPrefix(cfg.Port, ":")
	}

	if cfg.RazorpayKeyID == "" {
		return nil, errors.New("RAZORPAY_KEY_ID is required")
	}
	if cfg.RazorpayKeySecret == "" {
		return nil, errors.New("RAZORPAY_KEY_SECRET is required")
	}
	if cfg.UPIRecipientID == "" {
		return nil, errors.New("UPI_RECIPIENT_ID is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "5000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func intOrDefault(k *koanf.Koanf, key string, fallback int) int {
	if strings.TrimSpace(k.String(key)) == "" {
		return fallback
	}
	if v := k.Int(key); v > 0 {
		return v
	}
	return fallback
}

// LoadForTests allows tests to override environment variables without touching
// the real environment.
func LoadForTests(envVars map[string]string) (*Config, error) {
	original := make(map[string]string, len(envVars))
	for key := range envVars {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, envVars[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
