package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/jonny/engagebot/internal/domain/model"
)

func sign256(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func sign1(body []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"instagram","entry":[]}`)
	const secret = "app-secret"

	tests := []struct {
		name   string
		header string
		secret string
		want   model.SignatureStatus
	}{
		{"valid sha256", sign256(body, secret), secret, model.SignatureValid},
		{"valid sha1", sign1(body, secret), secret, model.SignatureValid},
		{"uppercase scheme", "SHA256=" + sign256(body, secret)[len("sha256="):], secret, model.SignatureValid},
		{"no secret skips", "", "", model.SignatureSkipped},
		{"no secret ignores header", "sha256=deadbeef", "", model.SignatureSkipped},
		{"missing header", "", secret, model.SignatureInvalid},
		{"wrong secret", sign256(body, "other"), secret, model.SignatureInvalid},
		{"unknown scheme", "md5=abcd", secret, model.SignatureInvalid},
		{"no separator", "sha256", secret, model.SignatureInvalid},
		{"empty signature", "sha256=", secret, model.SignatureInvalid},
		{"bad hex", "sha256=zzzz", secret, model.SignatureInvalid},
		{"length mismatch", "sha256=abcd", secret, model.SignatureInvalid},
		{"sha1 value under sha256 scheme", "sha256=" + sign1(body, secret)[len("sha1="):], secret, model.SignatureInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(body, tt.header, tt.secret); got != tt.want {
				t.Errorf("VerifySignature = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestVerifySignature_BodyTampering(t *testing.T) {
	const secret = "app-secret"
	header := sign256([]byte(`{"a":1}`), secret)
	if got := VerifySignature([]byte(`{"a":2}`), header, secret); got != model.SignatureInvalid {
		t.Errorf("tampered body verified as %s", got)
	}
}

func TestSignatureHeader_PrefersSHA256(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderSignature, "sha1=aa")
	if got := SignatureHeader(h); got != "sha1=aa" {
		t.Errorf("got %q", got)
	}
	h.Set(HeaderSignature256, "sha256=bb")
	if got := SignatureHeader(h); got != "sha256=bb" {
		t.Errorf("got %q", got)
	}
}
