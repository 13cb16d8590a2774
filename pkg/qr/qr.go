package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/veritrace/veritrace-backend/pkg/config"
)

// Payload is the display payload encoded into a product QR code. Scanners
// resolve the product id against the public read API.
type Payload struct {
	ProductID uint64    `json:"productId"`
	Timestamp time.Time `json:"timestamp"`
}

// Generator renders QR codes for product labels.
type Generator struct {
	size int
}

// NewGenerator returns a generator producing PNGs of the configured size.
func NewGenerator(cfg config.QRConfig) *Generator {
	size := cfg.Size
	if size <= 0 {
		size = 256
	}
	return &Generator{size: size}
}

// DataURL encodes the payload as a PNG data URL suitable for direct
// embedding in an <img> tag.
func (g *Generator) DataURL(payload Payload) (string, error) {
	if payload.ProductID == 0 {
		return "", fmt.Errorf("product id is required")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding qr payload: %w", err)
	}

	png, err := qrcode.Encode(string(data), qrcode.High, g.size)
	if err != nil {
		return "", fmt.Errorf("rendering qr code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
