// Package webhook delivers analysis events to an external HTTP endpoint.
// Payloads are signed with HMAC-SHA256 so receivers can authenticate them.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Headers set on every delivery.
const (
	SignatureHeader = "X-Tamperscope-Signature-256"
	EventHeader     = "X-Tamperscope-Event"
	DeliveryHeader  = "X-Tamperscope-Delivery"
)

var errSignatureMismatch = errors.New("signature mismatch")

// Sign returns the signature header value for payload.
func Sign(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature validates a signature header against the payload.
func VerifySignature(payload []byte, signature string, secret []byte) error {
	if !strings.HasPrefix(signature, "sha256=") {
		return fmt.Errorf("invalid signature format")
	}
	sig, err := hex.DecodeString(signature[7:])
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	if !hmac.Equal(sig, expected) {
		return errSignatureMismatch
	}
	return nil
}
