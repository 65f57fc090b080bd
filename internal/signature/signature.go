// Package signature implements the HMAC-SHA256 verification protocol used by
// the payment gateway: client round-trip payment confirmations are signed over
// the canonical "order_id|payment_id" message, webhook deliveries over the
// exact raw request body. The pre-shared secret never travels over the wire.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// PaymentDigest returns the lowercase hex HMAC-SHA256 of the canonical
// "<orderID>|<paymentID>" message.
func PaymentDigest(secret []byte, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(orderID))
	mac.Write([]byte{'|'})
	mac.Write([]byte(paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookDigest returns the lowercase hex HMAC-SHA256 of the exact bytes
// received on the wire. Hashing a re-serialisation of the parsed payload
// silently breaks verification because key order and whitespace differ from
// the original body, so callers must capture the body before JSON parsing.
func WebhookDigest(secret, rawBody []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPayment reports whether provided matches the digest for the order and
// payment pair. Fails closed when the secret or the signature is empty.
func VerifyPayment(secret []byte, orderID, paymentID, provided string) bool {
	if len(secret) == 0 {
		return false
	}
	return equal(PaymentDigest(secret, orderID, paymentID), provided)
}

// VerifyWebhook reports whether provided matches the digest of the raw body.
// Fails closed when the secret or the signature is empty.
func VerifyWebhook(secret, rawBody []byte, provided string) bool {
	if len(secret) == 0 {
		return false
	}
	return equal(WebhookDigest(secret, rawBody), provided)
}

// equal compares two hex digests in constant time. The provided value is
// normalised first; hex case carries no information.
func equal(expected, provided string) bool {
	provided = strings.ToLower(strings.TrimSpace(provided))
	if expected == "" || provided == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(provided))
}
