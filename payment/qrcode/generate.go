package qrcode

import (
	qrcode "github.com/skip2/go-qrcode"
)

// PaymentPNG renders the hosted payment URL as a PNG QR code so a checkout
// started on desktop can be finished on a phone.
func PaymentPNG(paymentURL string) ([]byte, error) {
	return qrcode.Encode(paymentURL, qrcode.Medium, 256)
}
