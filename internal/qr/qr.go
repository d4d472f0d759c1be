package qr

import (
	"encoding/base64"
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	dataURLPrefix = "data:image/png;base64,"
	defaultSize   = 256
)

var ErrEmptyContent = errors.New("qr: empty content")

// PNG encodes content as a QR code image of size x size pixels.
func PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = defaultSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

// DataURL returns the QR image for a participant id as an inline data URL.
func DataURL(participantID string) (string, error) {
	png, err := PNG(participantID, defaultSize)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}
