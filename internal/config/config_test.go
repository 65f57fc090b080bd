package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vendmaster/payments-api/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"RAZORPAY_KEY_ID":         "rzp_test_abc",
		"RAZORPAY_KEY_SECRET":     "secret",
		"RAZORPAY_SECRET_KEY":     "",
		"RAZORPAY_WEBHOOK_SECRET": "",
		"UPI_RECIPIENT_ID":        "merchant@oksbi",
		"UPI_ID":                  "",
		"SERVER_URL":              "",
		"PORT":                    "",
		"REDIS_URL":               "",
		"RAZORPAY_TIMEOUT":        "",
		"CREATE_RATE_MAX":         "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "5000", cfg.Port)
	require.Equal(t, ":5000", cfg.HTTPAddr())
	require.Equal(t, "http://localhost:5000", cfg.PublicBaseURL)
	require.Equal(t, "https://api.razorpay.com", cfg.RazorpayBaseURL)
	require.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	require.Equal(t, "VendMaster", cfg.UPIPayeeName)
	require.Equal(t, 24*time.Hour, cfg.WebhookReplayTTL)
	require.Equal(t, 30, cfg.CreateRateMax)
}

func TestLoadRequiresCredentials(t *testing.T) {
	env := baseEnv()
	env["RAZORPAY_KEY_ID"] = ""
	_, err := config.LoadForTests(env)
	require.ErrorContains(t, err, "RAZORPAY_KEY_ID")

	env = baseEnv()
	env["RAZORPAY_KEY_SECRET"] = ""
	_, err = config.LoadForTests(env)
	require.ErrorContains(t, err, "RAZORPAY_KEY_SECRET")

	env = baseEnv()
	env["UPI_RECIPIENT_ID"] = ""
	_, err = config.LoadForTests(env)
	require.ErrorContains(t, err, "UPI_RECIPIENT_ID")
}

func TestLoadFallbackNames(t *testing.T) {
	env := baseEnv()
	env["RAZORPAY_KEY_SECRET"] = ""
	env["RAZORPAY_SECRET_KEY"] = "legacy_secret"
	env["UPI_RECIPIENT_ID"] = ""
	env["UPI_ID"] = "fallback@upi"

	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "legacy_secret", cfg.RazorpayKeySecret)
	require.Equal(t, "fallback@upi", cfg.UPIRecipientID)
}

func TestLoadPublicBaseURLTrimsSlash(t *testing.T) {
	env := baseEnv()
	env["SERVER_URL"] = "https://pay.example.com/"

	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "https://pay.example.com", cfg.PublicBaseURL)
}
