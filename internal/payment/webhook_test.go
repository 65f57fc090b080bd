package payment_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vendmaster/payments-api/internal/payment"
	"github.com/vendmaster/payments-api/internal/signature"
)

const testWebhookSecret = "whsec_test"

func deliver(t *testing.T, wh *payment.Webhook, body []byte, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set("X-Razorpay-Signature", sig)
	}
	rec := httptest.NewRecorder()
	wh.Handle(rec, req)
	return rec
}

func webhookBody(t *testing.T, event string) []byte {
	t.Helper()
	payload := map[string]any{
		"event": event,
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":       "pay_wh1",
					"order_id": "order_wh1",
					"amount":   10000,
					"status":   "captured",
					"method":   "upi",
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func TestWebhookValidSignature(t *testing.T) {
	wh := &payment.Webhook{Secret: testWebhookSecret, Log: zerolog.Nop()}
	body := webhookBody(t, "payment.captured")

	rec := deliver(t, wh, body, signature.WebhookDigest([]byte(testWebhookSecret), body))
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "success", got["status"])
}

func TestWebhookBadSignature(t *testing.T) {
	wh := &payment.Webhook{Secret: testWebhookSecret, Log: zerolog.Nop()}
	body := webhookBody(t, "payment.captured")

	for name, sig := range map[string]string{
		"forged":  "deadbeef",
		"missing": "",
	} {
		t.Run(name, func(t *testing.T) {
			rec := deliver(t, wh, body, sig)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			require.Equal(t, "Invalid signature", got["error"])
		})
	}
}

func TestWebhookSignatureCoversRawBytes(t *testing.T) {
	wh := &payment.Webhook{Secret: testWebhookSecret, Log: zerolog.Nop()}
	body := []byte(`{"event": "payment.captured",  "payload": {}}`)
	sig := signature.WebhookDigest([]byte(testWebhookSecret), body)

	// The same JSON with different whitespace must not verify.
	var v map[string]any
	require.NoError(t, json.Unmarshal(body, &v))
	reserialised, err := json.Marshal(v)
	require.NoError(t, err)
	require.NotEqual(t, body, reserialised)

	rec := deliver(t, wh, reserialised, sig)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = deliver(t, wh, body, sig)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookDuplicateDelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	wh := &payment.Webhook{
		Secret:    testWebhookSecret,
		Replay:    client,
		ReplayTTL: time.Hour,
		Log:       zerolog.Nop(),
	}
	body := webhookBody(t, "payment.captured")
	sig := signature.WebhookDigest([]byte(testWebhookSecret), body)

	rec := deliver(t, wh, body, sig)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = deliver(t, wh, body, sig)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "duplicate", got["status"])

	// After the replay window the same delivery is processed again.
	mr.FastForward(2 * time.Hour)
	rec = deliver(t, wh, body, sig)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "success", got["status"])
}

func TestWebhookReplayStoreDownStillProcesses(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	wh := &payment.Webhook{Secret: testWebhookSecret, Replay: client, Log: zerolog.Nop()}
	body := webhookBody(t, "payment.failed")

	rec := deliver(t, wh, body, signature.WebhookDigest([]byte(testWebhookSecret), body))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookMalformedPayloadAfterValidSignature(t *testing.T) {
	wh := &payment.Webhook{Secret: testWebhookSecret, Log: zerolog.Nop()}
	body := []byte(`not json at all`)

	rec := deliver(t, wh, body, signature.WebhookDigest([]byte(testWebhookSecret), body))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "Invalid payload", got["error"])
}
