// Package gateway is a thin typed client for the Razorpay REST API. Every call
// is a single authenticated round trip; there are no retries, and any non-2xx
// or transport failure surfaces as *Error for the boundary to translate.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultBaseURL = "https://api.razorpay.com"

// Client issues authenticated requests against the Razorpay API.
type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	http      *http.Client
}

// New constructs a Client. An empty baseURL selects the production API; a
// non-positive timeout falls back to ten seconds per call.
func New(keyID, keySecret, baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Error reports an upstream failure. StatusCode is zero for transport errors.
type Error struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("razorpay: request failed: %v", e.Err)
	}
	return fmt.Sprintf("razorpay: status %d: %s", e.StatusCode, bytes.TrimSpace(e.Body))
}

// Unwrap exposes the transport error, if any.
func (e *Error) Unwrap() error { return e.Err }

// CreateOrder opens an order with automatic capture enabled.
func (c *Client) CreateOrder(ctx context.Context, p CreateOrderParams) (Order, error) {
	body := map[string]any{
		"amount":          p.AmountMinor,
		"currency":        p.Currency,
		"payment_capture": 1,
	}
	if p.Receipt != "" {
		body["receipt"] = p.Receipt
	}
	if len(p.Notes) > 0 {
		body["notes"] = p.Notes
	}
	var order Order
	err := c.do(ctx, http.MethodPost, "/v1/orders", body, &order)
	return order, err
}

// CreatePaymentLink creates a hosted payment link.
func (c *Client) CreatePaymentLink(ctx context.Context, p CreatePaymentLinkParams) (PaymentLink, error) {
	body := map[string]any{
		"amount":   p.AmountMinor,
		"currency": p.Currency,
	}
	if p.Description != "" {
		body["description"] = p.Description
	}
	customer := map[string]string{}
	if p.CustomerName != "" {
		customer["name"] = p.CustomerName
	}
	if p.CustomerContact != "" {
		customer["contact"] = p.CustomerContact
	}
	if p.CustomerEmail != "" {
		customer["email"] = p.CustomerEmail
	}
	if len(customer) > 0 {
		body["customer"] = customer
	}
	if p.CallbackURL != "" {
		body["callback_url"] = p.CallbackURL
		body["callback_method"] = "get"
	}
	var link PaymentLink
	err := c.do(ctx, http.MethodPost, "/v1/payment_links", body, &link)
	return link, err
}

// CreateQRCode asks the gateway to host a single-use fixed-amount UPI QR image.
func (c *Client) CreateQRCode(ctx context.Context, p CreateQRCodeParams) (QRCode, error) {
	body := map[string]any{
		"type":           "upi_qr",
		"usage":          "single_use",
		"fixed_amount":   true,
		"payment_amount": p.AmountMinor,
	}
	if p.Name != "" {
		body["name"] = p.Name
	}
	if p.Description != "" {
		body["description"] = p.Description
	}
	var qr QRCode
	err := c.do(ctx, http.MethodPost, "/v1/payments/qr_codes", body, &qr)
	return qr, err
}

// FetchOrder retrieves an order by its gateway-issued id.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (Order, error) {
	var order Order
	err := c.do(ctx, http.MethodGet, "/v1/orders/"+orderID, nil, &order)
	return order, err
}

// FetchPayment retrieves a payment by its gateway-issued id.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (Payment, error) {
	var payment Payment
	err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &payment)
	return payment, err
}

// CapturePayment finalises an authorized charge. The gateway treats repeat
// captures of the same payment as idempotent failures, which callers may
// resolve by re-fetching the payment.
func (c *Client) CapturePayment(ctx context.Context, paymentID string, amountMinor int64, currency string) (Payment, error) {
	body := map[string]any{
		"amount":   amountMinor,
		"currency": currency,
	}
	var payment Payment
	err := c.do(ctx, http.MethodPost, "/v1/payments/"+paymentID+"/capture", body, &payment)
	return payment, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &Error{StatusCode: resp.StatusCode, Body: payload}
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return &Error{StatusCode: resp.StatusCode, Body: payload, Err: err}
		}
	}
	return nil
}
