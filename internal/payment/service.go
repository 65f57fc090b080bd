// Package payment orchestrates the payment flows: order/link/QR creation,
// signature verification, manual capture and webhook processing. It holds no
// state of its own; the gateway is the single source of truth.
package payment

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vendmaster/payments-api/internal/common"
	"github.com/vendmaster/payments-api/internal/gateway"
	"github.com/vendmaster/payments-api/internal/obs"
	"github.com/vendmaster/payments-api/internal/signature"
	"github.com/vendmaster/payments-api/internal/upi"
)

// Payment status values reported by the gateway.
const (
	StatusCreated    = "created"
	StatusAttempted  = "attempted"
	StatusAuthorized = "authorized"
	StatusCaptured   = "captured"
	StatusFailed     = "failed"
	StatusRefunded   = "refunded"
)

const (
	currencyINR    = "INR"
	defaultNote    = "Payment"
	captureLockTTL = 30 * time.Second
)

// Gateway is the subset of the Razorpay client the service needs, narrowed to
// an interface so handlers can be exercised against a stub.
type Gateway interface {
	CreateOrder(ctx context.Context, p gateway.CreateOrderParams) (gateway.Order, error)
	CreatePaymentLink(ctx context.Context, p gateway.CreatePaymentLinkParams) (gateway.PaymentLink, error)
	CreateQRCode(ctx context.Context, p gateway.CreateQRCodeParams) (gateway.QRCode, error)
	FetchOrder(ctx context.Context, orderID string) (gateway.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (gateway.Payment, error)
	CapturePayment(ctx context.Context, paymentID string, amountMinor int64, currency string) (gateway.Payment, error)
}

// CaptureLocker serialises capture attempts for one payment across concurrent
// verification requests. Optional: without it captures race and the gateway's
// own idempotency is the only guard.
type CaptureLocker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service implements the payment flows against an injected gateway client.
type Service struct {
	Gateway       Gateway
	KeySecret     string
	PayeeVPA      string
	PayeeName     string
	MerchantCode  string
	PublicBaseURL string
	Locker        CaptureLocker
	Log           zerolog.Logger
}

// OrderResult is the outcome of creating a gateway order with its UPI link.
type OrderResult struct {
	OrderID   string
	UPILink   string
	QRCodeURL string
}

// CreateOrder opens a gateway order (automatic capture) and derives the UPI
// deep link plus an on-demand QR image URL for it.
func (s *Service) CreateOrder(ctx context.Context, amountMajor float64) (OrderResult, error) {
	order, err := s.Gateway.CreateOrder(ctx, gateway.CreateOrderParams{
		AmountMinor: minorUnits(amountMajor),
		Currency:    currencyINR,
		Receipt:     "rcpt_" + uuid.NewString(),
	})
	if err != nil {
		obs.CountOrderCreated("order", "error")
		return OrderResult{}, gatewayError("create order", err)
	}
	obs.CountOrderCreated("order", "ok")
	return OrderResult{
		OrderID:   order.ID,
		UPILink:   s.link(upi.FormatAmount(amountMajor), order.ID, "order_"+order.ID, defaultNote),
		QRCodeURL: s.PublicBaseURL + "/qrcodes/" + order.ID + ".png",
	}, nil
}

// UPIPaymentResult carries a raw deep link plus a hosted QR image URL.
type UPIPaymentResult struct {
	UPILink   string
	QRCodeURL string
}

// CreateUPIPayment builds a raw UPI deep link without touching the gateway.
// The QR image is delegated to a hosted renderer so nothing needs to persist.
func (s *Service) CreateUPIPayment(amountMajor float64, transactionID, customerName string) UPIPaymentResult {
	if strings.TrimSpace(transactionID) == "" {
		transactionID = "txn_" + uuid.NewString()
	}
	note := defaultNote
	if name := strings.TrimSpace(customerName); name != "" {
		note = "Payment from " + name
	}
	link := s.link(upi.FormatAmount(amountMajor), transactionID, "", note)
	return UPIPaymentResult{UPILink: link, QRCodeURL: upi.HostedImageURL(link, 0)}
}

// PaymentLinkResult is the outcome of creating a hosted payment link.
type PaymentLinkResult struct {
	LinkID    string
	ShortURL  string
	QRCodeURL string
}

// CreatePaymentLink opens a hosted checkout link with the gateway.
func (s *Service) CreatePaymentLink(ctx context.Context, amountMajor float64) (PaymentLinkResult, error) {
	link, err := s.Gateway.CreatePaymentLink(ctx, gateway.CreatePaymentLinkParams{
		AmountMinor: minorUnits(amountMajor),
		Currency:    currencyINR,
		Description: defaultNote,
		CallbackURL: s.PublicBaseURL + "/payment-status",
	})
	if err != nil {
		obs.CountOrderCreated("payment_link", "error")
		return PaymentLinkResult{}, gatewayError("create payment link", err)
	}
	obs.CountOrderCreated("payment_link", "ok")
	return PaymentLinkResult{
		LinkID:    link.ID,
		ShortURL:  link.ShortURL,
		QRCodeURL: upi.HostedImageURL(link.ShortURL, 0),
	}, nil
}

// QRCodeResult references a gateway-hosted QR image.
type QRCodeResult struct {
	QRCodeID  string
	QRCodeURL string
}

// CreateQRCode asks the gateway to host a single-use UPI QR image.
func (s *Service) CreateQRCode(ctx context.Context, amountMajor float64) (QRCodeResult, error) {
	qr, err := s.Gateway.CreateQRCode(ctx, gateway.CreateQRCodeParams{
		AmountMinor: minorUnits(amountMajor),
		Name:        s.PayeeName,
	})
	if err != nil {
		obs.CountOrderCreated("qr_code", "error")
		return QRCodeResult{}, gatewayError("create QR code", err)
	}
	obs.CountOrderCreated("qr_code", "ok")
	return QRCodeResult{QRCodeID: qr.ID, QRCodeURL: qr.ImageURL}, nil
}

// VerifyRequest is the normalised verification request: either a full signed
// triple from a client checkout round trip, or a bare payment id lookup.
type VerifyRequest struct {
	OrderID   string
	PaymentID string
	Signature string
}

// VerifyResult reports the consolidated verification outcome.
type VerifyResult struct {
	Confirmed bool
	Status    string
	Message   string
	PaymentID string
}

// VerifyPayment proves a payment-status claim. The HMAC check runs before any
// network call so a forged signature never reaches the gateway; a payment
// stuck at "authorized" is captured under the per-payment lock.
func (s *Service) VerifyPayment(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	mode := "lookup"
	if req.Signature != "" {
		mode = "signature"
		if !signature.VerifyPayment([]byte(s.KeySecret), req.OrderID, req.PaymentID, req.Signature) {
			obs.CountVerification(mode, "rejected")
			return VerifyResult{}, common.E(common.KindInvalidSignature, "Invalid payment signature", nil)
		}
	}

	payment, err := s.Gateway.FetchPayment(ctx, req.PaymentID)
	if err != nil {
		obs.CountVerification(mode, "error")
		return VerifyResult{}, gatewayError("fetch payment", err)
	}
	if req.OrderID != "" && payment.OrderID != "" && payment.OrderID != req.OrderID {
		obs.CountVerification(mode, "rejected")
		return VerifyResult{}, common.E(common.KindInvalidInput, "Payment does not belong to the given order", nil)
	}

	if payment.Status == StatusAuthorized {
		payment, err = s.capture(ctx, payment)
		if err != nil {
			obs.CountVerification(mode, "error")
			return VerifyResult{}, gatewayError("capture payment", err)
		}
	}

	result := resultFor(payment)
	if result.Confirmed {
		obs.CountVerification(mode, "confirmed")
	} else {
		obs.CountVerification(mode, "pending")
	}
	return result, nil
}

// capture finalises an authorized payment. It runs on a context detached from
// the inbound request: a dropped client connection must not abandon an
// in-flight capture.
func (s *Service) capture(ctx context.Context, p gateway.Payment) (gateway.Payment, error) {
	capCtx := context.WithoutCancel(ctx)
	attempt := func(ctx context.Context) error {
		captured, err := s.Gateway.CapturePayment(ctx, p.ID, p.Amount, p.Currency)
		if err == nil {
			p = captured
		}
		return err
	}

	var err error
	if s.Locker != nil {
		err = s.Locker.WithLock(capCtx, "capture:"+p.ID, captureLockTTL, attempt)
	} else {
		err = attempt(capCtx)
	}
	if err != nil {
		// Capture is idempotent on the gateway side; a concurrent caller may
		// have won the race. Re-fetch before giving up.
		if refreshed, ferr := s.Gateway.FetchPayment(capCtx, p.ID); ferr == nil && refreshed.Status == StatusCaptured {
			obs.CountCapture("already_captured")
			return refreshed, nil
		}
		obs.CountCapture("error")
		s.Log.Error().Err(err).Str("payment_id", p.ID).Msg("capture payment")
		return p, err
	}
	obs.CountCapture("ok")
	return p, nil
}

// OrderStatus fetches the current order state from the gateway.
func (s *Service) OrderStatus(ctx context.Context, orderID string) (gateway.Order, error) {
	order, err := s.Gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return gateway.Order{}, gatewayError("fetch order", err)
	}
	return order, nil
}

// PaymentStatus reports the payment status. Only "captured" counts as success;
// the service never marks anything paid on its own authority.
func (s *Service) PaymentStatus(ctx context.Context, paymentID string) (status string, captured bool, err error) {
	payment, err := s.Gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return "", false, gatewayError("fetch payment", err)
	}
	return payment.Status, payment.Status == StatusCaptured, nil
}

// QRImage renders the QR PNG for an order's UPI link on demand. The link is
// re-derived from the gateway order, so no image or state is ever stored.
func (s *Service) QRImage(ctx context.Context, file string) ([]byte, error) {
	orderID, ok := strings.CutSuffix(file, ".png")
	if !ok || orderID == "" {
		return nil, common.E(common.KindNotFound, "QR code not found", nil)
	}
	order, err := s.Gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, common.E(common.KindNotFound, "QR code not found", err)
	}
	link := s.link(upi.MajorFromMinor(order.Amount), order.ID, "order_"+order.ID, defaultNote)
	img, err := upi.PNG(link, 0)
	if err != nil {
		return nil, common.E(common.KindInternal, "Failed to render QR code", err)
	}
	return img, nil
}

func (s *Service) link(amount, transactionID, referenceID, note string) string {
	return upi.Link(upi.LinkParams{
		PayeeVPA:      s.PayeeVPA,
		PayeeName:     s.PayeeName,
		Note:          note,
		Amount:        amount,
		TransactionID: transactionID,
		ReferenceID:   referenceID,
		MerchantCode:  s.MerchantCode,
	})
}

func resultFor(p gateway.Payment) VerifyResult {
	res := VerifyResult{Status: p.Status, PaymentID: p.ID}
	switch p.Status {
	case StatusCaptured:
		res.Confirmed = true
		res.Message = "Payment Verified!"
	case StatusCreated, StatusAttempted, StatusAuthorized:
		res.Message = "Payment not captured yet"
	case StatusFailed:
		res.Message = "Payment failed"
	case StatusRefunded:
		res.Message = "Payment refunded"
	default:
		res.Message = "Payment status unknown"
	}
	return res
}

func gatewayError(op string, err error) *common.AppError {
	return common.E(common.KindGatewayFailure, "Failed to "+op, err)
}

func minorUnits(amountMajor float64) int64 {
	return int64(math.Round(amountMajor * 100))
}
