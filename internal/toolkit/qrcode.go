package toolkit

import (
	"encoding/base64"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/skip2/go-qrcode"

	apperrors "github.com/charlesng35/omnikit/pkg/errors"
)

const (
	minQRSize = 64
	maxQRSize = 2048
)

// QROptions tunes QRCode. Colors are #rrggbb.
type QROptions struct {
	Size       int    `default:"256"`
	Level      string `default:"medium"`
	Foreground string `default:"#000000"`
	Background string `default:"#ffffff"`
	NoBorder   bool
}

// QRResult is a PNG encoded QR code.
type QRResult struct {
	PNG     []byte `json:"-"`
	DataURI string `json:"data_uri"`
	Size    int    `json:"size"`
}

// QRCode encodes content as a PNG QR code.
func QRCode(content string, opts QROptions) (*QRResult, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, err
	}
	if content == "" {
		return nil, apperrors.NewBadRequest("content is required")
	}
	if opts.Size < minQRSize || opts.Size > maxQRSize {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("size must be between %d and %d", minQRSize, maxQRSize))
	}

	level, err := recoveryLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	fg, err := parseHexColor(opts.Foreground)
	if err != nil {
		return nil, err
	}
	bg, err := parseHexColor(opts.Background)
	if err != nil {
		return nil, err
	}

	code, err := qrcode.New(content, level)
	if err != nil {
		return nil, apperrors.NewBadRequest("content is too long for a QR code")
	}
	code.ForegroundColor = fg
	code.BackgroundColor = bg
	code.DisableBorder = opts.NoBorder

	png, err := code.PNG(opts.Size)
	if err != nil {
		return nil, fmt.Errorf("toolkit: render qr code: %w", err)
	}

	return &QRResult{
		PNG:     png,
		DataURI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		Size:    opts.Size,
	}, nil
}

func recoveryLevel(name string) (qrcode.RecoveryLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low", "l":
		return qrcode.Low, nil
	case "medium", "m":
		return qrcode.Medium, nil
	case "high", "q":
		return qrcode.High, nil
	case "highest", "h":
		return qrcode.Highest, nil
	default:
		return 0, apperrors.NewBadRequest("level must be low, medium, high or highest")
	}
}

func parseHexColor(value string) (color.Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid color %q", value))
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid color %q", value))
	}
	return color.RGBA{R: uint8(rgb >> 16), G: uint8(rgb >> 8), B: uint8(rgb), A: 0xff}, nil
}
