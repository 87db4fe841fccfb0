package qrcode

import (
	"errors"
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

// ErrEmptyPayload is returned when there is nothing to encode.
var ErrEmptyPayload = errors.New("qrcode: empty payload")

// Generator produces QR code PNG images.
type Generator struct {
	size  int
	level goqrcode.RecoveryLevel
}

// NewGenerator returns a generator producing size×size PNGs at medium recovery.
func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	return &Generator{size: size, level: goqrcode.Medium}
}

// PNG encodes data as a QR code PNG.
func (g *Generator) PNG(data string) ([]byte, error) {
	if data == "" {
		return nil, ErrEmptyPayload
	}
	png, err := goqrcode.Encode(data, g.level, g.size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode: %w", err)
	}
	return png, nil
}
