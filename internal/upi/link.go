// Package upi builds UPI deep links and QR images for them.
package upi

import (
	"net/url"
	"strconv"
	"strings"
)

// LinkParams are the fields of a upi://pay deep link. Amount is in major
// currency units, already formatted (see FormatAmount / MajorFromMinor).
type LinkParams struct {
	PayeeVPA      string
	PayeeName     string
	Note          string
	Amount        string
	TransactionID string
	ReferenceID   string
	MerchantCode  string
}

// Link renders the deep link. Parameter order is fixed (pa, pn, tn, am, cu,
// then tid, tr, mc) because UPI scanners are sensitive to it, so the query
// string is assembled by hand rather than through url.Values, which would
// alphabetise the keys.
func Link(p LinkParams) string {
	var b strings.Builder
	b.WriteString("upi://pay?pa=")
	b.WriteString(p.PayeeVPA)
	b.WriteString("&pn=")
	b.WriteString(escape(p.PayeeName))
	b.WriteString("&tn=")
	b.WriteString(escape(p.Note))
	b.WriteString("&am=")
	b.WriteString(p.Amount)
	b.WriteString("&cu=INR")
	if p.TransactionID != "" {
		b.WriteString("&tid=")
		b.WriteString(escape(p.TransactionID))
	}
	if p.ReferenceID != "" {
		b.WriteString("&tr=")
		b.WriteString(escape(p.ReferenceID))
	}
	if p.MerchantCode != "" {
		b.WriteString("&mc=")
		b.WriteString(escape(p.MerchantCode))
	}
	return b.String()
}

// escape percent-encodes a query value. Spaces become %20, not +, which some
// UPI apps mishandle.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// FormatAmount renders a major-unit amount without trailing zeros, matching
// what the client submitted ("100", not "100.00").
func FormatAmount(major float64) string {
	return strconv.FormatFloat(major, 'f', -1, 64)
}

// MajorFromMinor converts a smallest-unit amount (paise) to its major-unit
// string form.
func MajorFromMinor(minor int64) string {
	s := strconv.FormatFloat(float64(minor)/100, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
