package gateway

// Order is a gateway-issued order. Status is one of created, attempted, paid,
// expired; orders are never mutated locally.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	Status   string `json:"status"`
}

// Payment is read-only from this service's perspective. Status is one of
// created, authorized, captured, failed, refunded.
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method,omitempty"`
	VPA      string `json:"vpa,omitempty"`
	Captured bool   `json:"captured"`
}

// PaymentLink is a hosted checkout link. Status is one of created, paid,
// expired, cancelled.
type PaymentLink struct {
	ID       string `json:"id"`
	ShortURL string `json:"short_url"`
	Status   string `json:"status"`
}

// QRCode references a gateway-hosted QR image.
type QRCode struct {
	ID       string `json:"id"`
	ImageURL string `json:"image_url"`
	Status   string `json:"status"`
}

// CreateOrderParams carries the fields required to open an order. AmountMinor
// is in the currency's smallest unit (paise for INR).
type CreateOrderParams struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// CreatePaymentLinkParams carries the fields for a hosted payment link.
type CreatePaymentLinkParams struct {
	AmountMinor     int64
	Currency        string
	Description     string
	CustomerName    string
	CustomerContact string
	CustomerEmail   string
	CallbackURL     string
}

// CreateQRCodeParams carries the fields for a gateway-hosted QR code.
type CreateQRCodeParams struct {
	AmountMinor int64
	Name        string
	Description string
}
