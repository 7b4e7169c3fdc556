package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// Verifier authenticates a raw delivery before anything parses it.
type Verifier interface {
	Verify(ctx context.Context, headers map[string]string, body []byte) error
}

// HeaderHMACVerifier checks an HMAC-SHA256 digest of the raw request
// body carried in a header. A missing header and a digest mismatch
// produce the same rejection so callers cannot probe which check fired.
type HeaderHMACVerifier struct {
	Header   string
	Prefix   string
	Secret   string
	Encoding string // hex | base64
}

func (v HeaderHMACVerifier) Verify(_ context.Context, headers map[string]string, body []byte) error {
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return webhookInternal("webhook: signature secret is required", nil)
	}
	header := strings.TrimSpace(headerValue(headers, v.Header))
	signature := strings.TrimSpace(strings.TrimPrefix(header, strings.TrimSpace(v.Prefix)))
	if signature == "" {
		return webhookSignatureInvalid("webhook: signature verification failed", nil)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := mac.Sum(nil)

	var decoded []byte
	var err error
	switch strings.ToLower(strings.TrimSpace(v.Encoding)) {
	case "base64":
		decoded, err = base64.StdEncoding.DecodeString(signature)
	default:
		decoded, err = hex.DecodeString(signature)
	}
	if err != nil {
		return webhookSignatureInvalid("webhook: signature verification failed", nil)
	}
	if subtle.ConstantTimeCompare(decoded, expected) != 1 {
		return webhookSignatureInvalid("webhook: signature verification failed", nil)
	}
	return nil
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

var _ Verifier = HeaderHMACVerifier{}
