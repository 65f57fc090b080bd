package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vendmaster/payments-api/internal/common"
	"github.com/vendmaster/payments-api/internal/obs"
	"github.com/vendmaster/payments-api/internal/signature"
)

const (
	signatureHeader   = "X-Razorpay-Signature"
	maxWebhookBody    = 1 << 20
	defaultReplayTTL  = 24 * time.Hour
	replayKeyPrefix   = "wh:razorpay:"
	webhookCaptured   = "payment.captured"
	webhookFailed     = "payment.failed"
	webhookAuthorized = "payment.authorized"
)

// Webhook verifies and processes gateway webhook deliveries. Replay is
// optional; without redis every delivery is processed, which is safe because
// processing is idempotent.
type Webhook struct {
	Secret    string
	Replay    *redis.Client
	ReplayTTL time.Duration
	Log       zerolog.Logger
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Amount  int64  `json:"amount"`
				Status  string `json:"status"`
				Method  string `json:"method"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Handle serves POST /webhook. The HMAC is computed over the exact raw bytes
// received; parsing happens only after the signature check passes.
func (wh *Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		obs.CountWebhook("error")
		common.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !signature.VerifyWebhook([]byte(wh.Secret), body, r.Header.Get(signatureHeader)) {
		obs.CountWebhook("rejected")
		wh.Log.Warn().Str("remote_ip", common.ClientIP(r)).Msg("webhook signature mismatch")
		common.JSONError(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		obs.CountWebhook("error")
		common.JSONError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	dup, err := wh.seen(r.Context(), body)
	if err != nil {
		// Redis being down must not drop deliveries; process at-least-once.
		wh.Log.Error().Err(err).Msg("webhook replay store unavailable")
	}
	if dup {
		obs.CountWebhook("duplicate")
		common.JSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	entity := evt.Payload.Payment.Entity
	log := wh.Log.Info().
		Str("event", evt.Event).
		Str("payment_id", entity.ID).
		Str("order_id", entity.OrderID).
		Int64("amount", entity.Amount).
		Str("method", entity.Method)
	switch evt.Event {
	case webhookCaptured:
		log.Msg("payment captured")
	case webhookAuthorized:
		log.Msg("payment authorized")
	case webhookFailed:
		log.Msg("payment failed")
	default:
		log.Msg("unhandled webhook event")
	}

	obs.CountWebhook("ok")
	common.JSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// seen marks the delivery body as processed and reports whether it was seen
// before. Keyed on the body hash so gateway retries dedupe regardless of
// delivery headers.
func (wh *Webhook) seen(ctx context.Context, body []byte) (bool, error) {
	if wh.Replay == nil {
		return false, nil
	}
	ttl := wh.ReplayTTL
	if ttl <= 0 {
		ttl = defaultReplayTTL
	}
	fresh, err := wh.Replay.SetNX(ctx, replayKeyPrefix+common.Sha256Hex(body), 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return !fresh, nil
}
