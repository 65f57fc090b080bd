package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/vendmaster/payments-api/internal/gateway"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *gateway.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return gateway.New("rzp_test_key", "rzp_test_secret", srv.URL, 2*time.Second)
}

func TestCreateOrder(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "rzp_test_key", user)
		require.Equal(t, "rzp_test_secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(gateway.Order{
			ID: "order_Nxq7e2P1a", Amount: 10000, Currency: "INR", Receipt: "rcpt_1", Status: "created",
		})
	})

	order, err := client.CreateOrder(context.Background(), gateway.CreateOrderParams{
		AmountMinor: 10000,
		Currency:    "INR",
		Receipt:     "rcpt_1",
	})
	require.NoError(t, err)
	require.Equal(t, "order_Nxq7e2P1a", order.ID)
	require.Equal(t, "created", order.Status)

	require.Equal(t, float64(10000), gotBody["amount"])
	require.Equal(t, "INR", gotBody["currency"])
	require.Equal(t, float64(1), gotBody["payment_capture"])
	require.Equal(t, "rcpt_1", gotBody["receipt"])
}

func TestFetchPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/payments/pay_123", r.URL.Path)
		_ = json.NewEncoder(w).Encode(gateway.Payment{
			ID: "pay_123", OrderID: "order_1", Amount: 10000, Currency: "INR", Status: "captured", Captured: true,
		})
	})

	payment, err := client.FetchPayment(context.Background(), "pay_123")
	require.NoError(t, err)
	require.Equal(t, "captured", payment.Status)
	require.True(t, payment.Captured)
}

func TestCapturePayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/pay_123/capture", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, float64(5000), body["amount"])
		require.Equal(t, "INR", body["currency"])
		_ = json.NewEncoder(w).Encode(gateway.Payment{ID: "pay_123", Status: "captured", Captured: true})
	})

	payment, err := client.CapturePayment(context.Background(), "pay_123", 5000, "INR")
	require.NoError(t, err)
	require.Equal(t, "captured", payment.Status)
}

func TestCreateQRCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/qr_codes", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "upi_qr", body["type"])
		require.Equal(t, "single_use", body["usage"])
		require.Equal(t, true, body["fixed_amount"])
		require.Equal(t, float64(10000), body["payment_amount"])
		_ = json.NewEncoder(w).Encode(gateway.QRCode{ID: "qr_1", ImageURL: "https://rzp.io/qr/1", Status: "active"})
	})

	qr, err := client.CreateQRCode(context.Background(), gateway.CreateQRCodeParams{AmountMinor: 10000})
	require.NoError(t, err)
	require.Equal(t, "qr_1", qr.ID)
	require.Equal(t, "https://rzp.io/qr/1", qr.ImageURL)
}

func TestNon2xxReturnsGatewayError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"description":"amount too small"}}`))
	})

	_, err := client.CreateOrder(context.Background(), gateway.CreateOrderParams{AmountMinor: 1, Currency: "INR"})
	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	require.Contains(t, string(gwErr.Body), "amount too small")
}

func TestTransportFailureReturnsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	client := gateway.New("k", "s", srv.URL, time.Second)

	_, err := client.FetchPayment(context.Background(), "pay_1")
	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	require.Zero(t, gwErr.StatusCode)
	require.Error(t, errors.Unwrap(gwErr))
}

func TestOutboundRequestsCarryTraceContext(t *testing.T) {
	prevProvider := otel.GetTracerProvider()
	prevPropagator := otel.GetTextMapPropagator()
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
		_ = tp.Shutdown(context.Background())
	})

	var traceparent string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		_ = json.NewEncoder(w).Encode(gateway.Order{ID: "order_1"})
	})

	ctx, span := tp.Tracer("test").Start(context.Background(), "fetch order")
	_, err := client.FetchOrder(ctx, "order_1")
	span.End()
	require.NoError(t, err)
	require.NotEmpty(t, traceparent)
}

func TestFetchPaymentIdempotent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(gateway.Payment{ID: "pay_9", Status: "captured", Captured: true})
	})

	first, err := client.FetchPayment(context.Background(), "pay_9")
	require.NoError(t, err)
	second, err := client.FetchPayment(context.Background(), "pay_9")
	require.NoError(t, err)
	require.Equal(t, first.Status, second.Status)
}
