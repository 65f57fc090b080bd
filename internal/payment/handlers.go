package payment

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vendmaster/payments-api/internal/common"
)

// Handler exposes the payment flows over HTTP. Handlers stay thin: decode,
// validate, delegate to the service, render.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// NewHandler constructs a Handler with a shared validator instance.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: validator.New()}
}

type amountRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type createUPIPaymentRequest struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	TransactionID string  `json:"transactionId"`
	CustomerName  string  `json:"customerName"`
}

type createOrderResponse struct {
	Success        bool   `json:"success"`
	OrderID        string `json:"order_id"`
	UPIPaymentLink string `json:"upiPaymentLink"`
	QRCodeURL      string `json:"qrCodeURL"`
}

type createUPIPaymentResponse struct {
	Success       bool   `json:"success"`
	UPIPaymentURL string `json:"upiPaymentUrl"`
	QRCodeURL     string `json:"qrCodeUrl"`
}

type createPaymentLinkResponse struct {
	Success     bool   `json:"success"`
	PaymentLink string `json:"paymentLink"`
	QRCodeURL   string `json:"qrCodeUrl"`
}

type createQRResponse struct {
	Success   bool   `json:"success"`
	QRCodeID  string `json:"qr_code_id"`
	QRCodeURL string `json:"qr_code_url"`
}

type verifyPaymentResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	PaymentID string `json:"payment_id,omitempty"`
}

type orderStatusResponse struct {
	Success bool `json:"success"`
	Order   any  `json:"order"`
}

type paymentStatusResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// CreateOrder handles POST /create-order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Svc.CreateOrder(r.Context(), req.Amount)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, createOrderResponse{
		Success:        true,
		OrderID:        res.OrderID,
		UPIPaymentLink: res.UPILink,
		QRCodeURL:      res.QRCodeURL,
	})
}

// CreateUPIPayment handles POST /create-upi-payment.
func (h *Handler) CreateUPIPayment(w http.ResponseWriter, r *http.Request) {
	var req createUPIPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	res := h.Svc.CreateUPIPayment(req.Amount, req.TransactionID, req.CustomerName)
	common.JSON(w, http.StatusOK, createUPIPaymentResponse{
		Success:       true,
		UPIPaymentURL: res.UPILink,
		QRCodeURL:     res.QRCodeURL,
	})
}

// CreatePaymentLink handles POST /create-payment-link.
func (h *Handler) CreatePaymentLink(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Svc.CreatePaymentLink(r.Context(), req.Amount)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, createPaymentLinkResponse{
		Success:     true,
		PaymentLink: res.ShortURL,
		QRCodeURL:   res.QRCodeURL,
	})
}

// CreateQR handles POST /create-qr.
func (h *Handler) CreateQR(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.Svc.CreateQRCode(r.Context(), req.Amount)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, createQRResponse{
		Success:   true,
		QRCodeID:  res.QRCodeID,
		QRCodeURL: res.QRCodeURL,
	})
}

// verifyPaymentRequest accepts both the checkout-callback field names and the
// plain lookup names, so one endpoint serves both verification modes.
type verifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	OrderID           string `json:"orderId"`
	PaymentID         string `json:"paymentId"`
	Signature         string `json:"signature"`
	BarePaymentID     string `json:"payment_id"`
}

func (req verifyPaymentRequest) normalise() VerifyRequest {
	return VerifyRequest{
		OrderID:   firstNonEmpty(req.RazorpayOrderID, req.OrderID),
		PaymentID: firstNonEmpty(req.RazorpayPaymentID, req.PaymentID, req.BarePaymentID),
		Signature: firstNonEmpty(req.RazorpaySignature, req.Signature),
	}
}

// VerifyPayment handles POST /verify-payment.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var body verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req := body.normalise()
	if req.PaymentID == "" {
		common.JSONError(w, http.StatusBadRequest, "Missing payment details")
		return
	}
	if req.Signature != "" && req.OrderID == "" {
		common.JSONError(w, http.StatusBadRequest, "Missing payment details")
		return
	}

	res, err := h.Svc.VerifyPayment(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, verifyPaymentResponse{
		Success:   res.Confirmed,
		Status:    res.Status,
		Message:   res.Message,
		PaymentID: res.PaymentID,
	})
}

// OrderStatus handles GET /order-status/{orderId}.
func (h *Handler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		common.JSONError(w, http.StatusBadRequest, "Missing orderId")
		return
	}
	order, err := h.Svc.OrderStatus(r.Context(), orderID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, orderStatusResponse{Success: true, Order: order})
}

// PaymentStatus handles GET /payment-status?payment_id=.
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentID := strings.TrimSpace(r.URL.Query().Get("payment_id"))
	if paymentID == "" {
		common.JSONError(w, http.StatusBadRequest, "Missing payment_id")
		return
	}
	status, captured, err := h.Svc.PaymentStatus(r.Context(), paymentID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, paymentStatusResponse{Success: captured, Status: status})
}

// QRImage handles GET /qrcodes/{file}, rendering the order's QR PNG on demand.
func (h *Handler) QRImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.Svc.QRImage(r.Context(), chi.URLParam(r, "file"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "Amount must be a positive number")
		return false
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
