package upi

import (
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultQRSize = 300

// PNG renders content as a QR image held entirely in memory; nothing is
// written to disk.
func PNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultQRSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}

// HostedImageURL builds a third-party rendered QR image URL for clients that
// want an <img src> instead of inline bytes.
func HostedImageURL(content string, size int) string {
	if size <= 0 {
		size = defaultQRSize
	}
	return fmt.Sprintf("https://api.qrserver.com/v1/create-qr-code/?size=%dx%d&data=%s",
		size, size, url.QueryEscape(content))
}
