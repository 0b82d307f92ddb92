// Package qr encodes locker codes as QR PNG images and reads them back from
// photos.
package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/skip2/go-qrcode"
)

const imageSize = 256

var (
	ErrNoCode      = errors.New("no qr code in image")
	ErrInvalidCode = errors.New("qr payload is not a locker code")
)

// CodePattern is the shape of a locker code: one letter, three digits.
var CodePattern = regexp.MustCompile(`^[A-Z]\d{3}$`)

// Encoder renders locker codes. With a base URL the payload is a link that a
// phone camera can open directly.
type Encoder struct {
	baseURL string
}

func NewEncoder(baseURL string) *Encoder {
	return &Encoder{baseURL: strings.TrimRight(baseURL, "/")}
}

// Payload is the text stored in the QR code for code.
func (e *Encoder) Payload(code string) string {
	if e.baseURL == "" {
		return code
	}
	return e.baseURL + "/lockers/code/" + url.PathEscape(code)
}

// PNG renders the QR image for code.
func (e *Encoder) PNG(code string) ([]byte, error) {
	png, err := qrcode.Encode(e.Payload(code), qrcode.Medium, imageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

// Decode finds a QR code in an image and returns its raw text.
func Decode(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to prepare bitmap: %w", err)
	}

	result, err := zxingqr.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", ErrNoCode
	}
	return result.GetText(), nil
}

// ExtractCode accepts a bare code or any URL whose last path segment is a
// code, and returns the normalized code.
func ExtractCode(payload string) (string, error) {
	s := strings.TrimSpace(payload)
	if u, err := url.Parse(s); err == nil && u.Scheme != "" {
		s = u.Path
	}
	s = strings.TrimRight(s, "/")
	if strings.Contains(s, "/") {
		s = path.Base(s)
	}
	if unescaped, err := url.PathUnescape(s); err == nil {
		s = unescaped
	}

	code := strings.ToUpper(strings.TrimSpace(s))
	if !CodePattern.MatchString(code) {
		return "", fmt.Errorf("%q: %w", payload, ErrInvalidCode)
	}
	return code, nil
}

// DecodeCode is Decode followed by ExtractCode.
func DecodeCode(img []byte) (string, error) {
	text, err := Decode(bytes.NewReader(img))
	if err != nil {
		return "", err
	}
	return ExtractCode(text)
}
