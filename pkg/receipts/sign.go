package receipts

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex-encoded HMAC-SHA-256 of p's canonical JSON encoding,
// using secret as the key. Verify recomputes this and compares.
func Sign(p Payload, secret string) (string, error) {
	b, err := p.canonicalBytes()
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(b)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether signature matches HMAC_SHA256(secret, canonical(p)).
func Verify(p Payload, secret, signature string) (bool, error) {
	want, err := Sign(p, secret)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(want), []byte(signature)), nil
}
