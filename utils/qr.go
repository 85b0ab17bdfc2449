package utils

import (
	"encoding/base64"

	qr "github.com/skip2/go-qrcode"
)

const qrSize = 256

// GenerateQR encodes content as a PNG QR code.
func GenerateQR(content string) ([]byte, error) {
	data, err := qr.Encode(content, qr.Medium, qrSize)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// QRDataURI is GenerateQR wrapped as a data: URI ready for an <img> tag.
func QRDataURI(content string) (string, error) {
	png, err := GenerateQR(content)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
