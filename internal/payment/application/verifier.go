package application

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verifier checks gateway callback signatures. The gateway signs
// "<gatewayOrderID>|<gatewayPaymentID>" with HMAC-SHA256 under the
// shared key secret and sends the hex digest back with the redirect.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Signature computes the expected digest for a gateway order/payment
// pair. Deterministic: same inputs, same digest.
func (v *Verifier) Signature(gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares the supplied signature in constant time.
func (v *Verifier) Verify(gatewayOrderID, paymentID, signature string) bool {
	expected := v.Signature(gatewayOrderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
