package otp

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashCode returns the SHA-256 hex digest of a code. Only this digest is
// ever persisted; the plaintext code lives exactly as long as delivery.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyCode reports whether candidate hashes to the stored digest.
//
// The comparison is constant-time with respect to the candidate: the digest
// of the candidate is computed unconditionally and compared with
// subtle.ConstantTimeCompare over the fixed 64-char hex form.
func VerifyCode(storedDigest, candidate string) bool {
	if len(storedDigest) != sha256.Size*2 {
		return false
	}
	got := HashCode(candidate)
	return subtle.ConstantTimeCompare([]byte(storedDigest), []byte(got)) == 1
}
