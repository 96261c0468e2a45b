package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	domain "github.com/lavanya11112/SEPROJECT/internal/entity"
)

// Signer computes and checks hex-encoded HMAC-SHA256 signatures over raw
// request bodies, the scheme the payment gateway uses for webhooks.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("webhook secret required")
	}
	return &Signer{secret: []byte(secret)}, nil
}

func (s *Signer) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time. Any mismatch, including a malformed hex
// string, is reported as domain.ErrInvalidSignature.
func (s *Signer) Verify(payload []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return fmt.Errorf("%w: missing signature", domain.ErrInvalidSignature)
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", domain.ErrInvalidSignature)
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return domain.ErrInvalidSignature
	}
	return nil
}
