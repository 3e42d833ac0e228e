package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestVerifierRoundtrip(t *testing.T) {
	v := NewVerifier("key_secret")

	sig := v.Signature("order_abc", "pay_123")
	assert.True(t, v.Verify("order_abc", "pay_123", sig))
	assert.Equal(t, sig, v.Signature("order_abc", "pay_123"))
}

func TestVerifierRejects(t *testing.T) {
	v := NewVerifier("key_secret")
	sig := v.Signature("order_abc", "pay_123")

	assert.False(t, v.Verify("order_abc", "pay_123", ""))
	assert.False(t, v.Verify("order_abc", "pay_999", sig))
	assert.False(t, v.Verify("order_xyz", "pay_123", sig))
	assert.False(t, NewVerifier("other_secret").Verify("order_abc", "pay_123", sig))
}

// Any single-character corruption of the digest must fail verification.
func TestVerifierTamperedSignature(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := NewVerifier(rapid.StringN(1, 32, 32).Draw(t, "secret"))
		orderID := rapid.StringN(1, 20, 20).Draw(t, "orderID")
		paymentID := rapid.StringN(1, 20, 20).Draw(t, "paymentID")

		sig := v.Signature(orderID, paymentID)
		require.True(t, v.Verify(orderID, paymentID, sig))

		pos := rapid.IntRange(0, len(sig)-1).Draw(t, "pos")
		replacement := rapid.SampledFrom([]byte("0123456789abcdef")).
			Filter(func(b byte) bool { return b != sig[pos] }).Draw(t, "replacement")
		tampered := sig[:pos] + string(replacement) + sig[pos+1:]

		assert.False(t, v.Verify(orderID, paymentID, tampered))
	})
}
