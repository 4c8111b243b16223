package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks an X-Hub-Signature-256 value against the raw
// request body. The policy is deliberately fail-open: no secret, no
// signature, or a comparison that cannot be completed (malformed hex,
// length mismatch) all return true. Callers wanting strict behavior use
// VerifySignatureStrict via Config.StrictAuth at the dispatch layer.
func VerifySignature(body []byte, signatureHeader string, secret string) bool {
	ok, verifiable := checkSignature(body, signatureHeader, secret)
	if !verifiable {
		return true
	}
	return ok
}

// VerifySignatureStrict is the fail-closed variant: an unverifiable
// signature (missing secret, missing header, malformed hex, length
// mismatch) is rejected the same as a content mismatch.
func VerifySignatureStrict(body []byte, signatureHeader string, secret string) bool {
	ok, verifiable := checkSignature(body, signatureHeader, secret)
	return verifiable && ok
}

// checkSignature reports whether the signature matches and whether a
// comparison could be completed at all; the fail-open/fail-closed policy
// split lives with the callers.
func checkSignature(body []byte, signatureHeader string, secret string) (ok bool, verifiable bool) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return false, false
	}
	signature := strings.TrimSpace(signatureHeader)
	if signature == "" {
		return false, false
	}
	signature = strings.TrimPrefix(signature, signaturePrefix)

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := mac.Sum(nil)

	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return false, false
	}
	if len(decoded) != len(expected) {
		return false, false
	}
	return subtle.ConstantTimeCompare(decoded, expected) == 1, true
}
