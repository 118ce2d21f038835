// Package pass issues QR-coded booking passes carrying an HMAC signature.
package pass

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

var ErrBadSignature = errors.New("pass signature mismatch")

// Claims are the booking fields printed on a pass.
type Claims struct {
	BookingID  string
	ResourceID string
	Date       string
	TimeSlot   string
}

type Issuer struct {
	secret []byte
	size   int
}

func NewIssuer(secret string, size int) *Issuer {
	if size <= 0 {
		size = 256
	}
	return &Issuer{secret: []byte(secret), size: size}
}

func (c Claims) payload() string {
	return strings.Join([]string{c.BookingID, c.ResourceID, c.Date, c.TimeSlot}, "|")
}

// Token returns "<fields>|<signature>".
func (i *Issuer) Token(c Claims) string {
	p := c.payload()
	return p + "|" + i.sign(p)
}

// Verify parses a token and checks its signature.
func (i *Issuer) Verify(token string) (Claims, error) {
	parts := strings.Split(token, "|")
	if len(parts) != 5 {
		return Claims{}, fmt.Errorf("malformed pass token")
	}
	c := Claims{BookingID: parts[0], ResourceID: parts[1], Date: parts[2], TimeSlot: parts[3]}
	if !hmac.Equal([]byte(i.sign(c.payload())), []byte(parts[4])) {
		return Claims{}, ErrBadSignature
	}
	return c, nil
}

// PNG renders the signed token as a QR code.
func (i *Issuer) PNG(c Claims) ([]byte, error) {
	png, err := qrcode.Encode(i.Token(c), qrcode.Medium, i.size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

func (i *Issuer) sign(payload string) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
