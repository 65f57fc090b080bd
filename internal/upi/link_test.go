package upi_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vendmaster/payments-api/internal/upi"
)

func TestLinkFormat(t *testing.T) {
	link := upi.Link(upi.LinkParams{
		PayeeVPA:      "merchant@oksbi",
		PayeeName:     "Vend Master",
		Note:          "Payment",
		Amount:        "100",
		TransactionID: "order_abc123",
		ReferenceID:   "order_order_abc123",
		MerchantCode:  "1234",
	})

	require.Equal(t,
		"upi://pay?pa=merchant@oksbi&pn=Vend%20Master&tn=Payment&am=100&cu=INR&tid=order_abc123&tr=order_order_abc123&mc=1234",
		link)
}

func TestLinkOmitsOptionalParams(t *testing.T) {
	link := upi.Link(upi.LinkParams{
		PayeeVPA:  "merchant@oksbi",
		PayeeName: "VendMaster",
		Note:      "Payment",
		Amount:    "99.5",
	})

	require.Equal(t, "upi://pay?pa=merchant@oksbi&pn=VendMaster&tn=Payment&am=99.5&cu=INR", link)
	require.NotContains(t, link, "tid=")
	require.NotContains(t, link, "tr=")
	require.NotContains(t, link, "mc=")
}

func TestLinkParameterOrder(t *testing.T) {
	link := upi.Link(upi.LinkParams{
		PayeeVPA: "a@b", PayeeName: "n", Note: "t", Amount: "1",
		TransactionID: "x", ReferenceID: "y", MerchantCode: "z",
	})
	order := []string{"pa=", "pn=", "tn=", "am=", "cu=INR", "tid=", "tr=", "mc="}
	last := -1
	for _, key := range order {
		idx := strings.Index(link, key)
		require.Greater(t, idx, last, "expected %s after previous parameter", key)
		last = idx
	}
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "100", upi.FormatAmount(100))
	require.Equal(t, "99.5", upi.FormatAmount(99.5))
	require.Equal(t, "0.01", upi.FormatAmount(0.01))
}

func TestMajorFromMinor(t *testing.T) {
	require.Equal(t, "100", upi.MajorFromMinor(10000))
	require.Equal(t, "99.5", upi.MajorFromMinor(9950))
	require.Equal(t, "99.05", upi.MajorFromMinor(9905))
	require.Equal(t, "0.01", upi.MajorFromMinor(1))
}

func TestPNGRendersImage(t *testing.T) {
	img, err := upi.PNG("upi://pay?pa=merchant@oksbi&pn=VendMaster&tn=Payment&am=100&cu=INR", 256)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(img, []byte("\x89PNG\r\n\x1a\n")), "expected PNG magic bytes")
}

func TestHostedImageURLEncodesContent(t *testing.T) {
	u := upi.HostedImageURL("upi://pay?pa=a@b&am=1", 300)
	require.True(t, strings.HasPrefix(u, "https://api.qrserver.com/v1/create-qr-code/?size=300x300&data="))
	require.Contains(t, u, "upi%3A%2F%2Fpay")
}
