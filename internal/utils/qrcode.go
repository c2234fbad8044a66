package utils

import (
	"encoding/base64"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// PaymentQR encode la référence de paiement en QR code, prêt pour <img src="...">
func PaymentQR(ref string, amount decimal.Decimal, currency string) (string, error) {
	png, err := PaymentQRPNG(ref, amount, currency)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func PaymentQRPNG(ref string, amount decimal.Decimal, currency string) ([]byte, error) {
	payload := fmt.Sprintf("CEDRA\n%s\n%s%s", ref, currency, amount.StringFixed(2))
	return qrcode.Encode(payload, qrcode.Medium, 256)
}
