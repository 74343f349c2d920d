package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"net/http"
	"strings"

	"github.com/jonny/engagebot/internal/domain/model"
)

const (
	HeaderSignature256 = "X-Hub-Signature-256"
	HeaderSignature    = "X-Hub-Signature"
)

// SignatureHeader returns the signature header value, preferring the
// SHA-256 variant.
func SignatureHeader(h http.Header) string {
	if v := h.Get(HeaderSignature256); v != "" {
		return v
	}
	return h.Get(HeaderSignature)
}

// VerifySignature checks header ("sha256=<hex>" or "sha1=<hex>") against the
// HMAC of body keyed by secret. An empty secret skips verification.
func VerifySignature(body []byte, header, secret string) model.SignatureStatus {
	if secret == "" {
		return model.SignatureSkipped
	}
	scheme, sig, ok := strings.Cut(strings.TrimSpace(header), "=")
	if !ok || sig == "" {
		return model.SignatureInvalid
	}

	var newHash func() hash.Hash
	switch strings.ToLower(scheme) {
	case "sha256":
		newHash = sha256.New
	case "sha1":
		newHash = sha1.New
	default:
		return model.SignatureInvalid
	}

	provided, err := hex.DecodeString(sig)
	if err != nil {
		return model.SignatureInvalid
	}
	mac := hmac.New(newHash, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)
	if len(provided) != len(expected) || !hmac.Equal(provided, expected) {
		return model.SignatureInvalid
	}
	return model.SignatureValid
}
