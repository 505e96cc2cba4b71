package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/event"
)

// Validator verifies that an inbound webhook genuinely originated from the
// claimed platform, using the shared webhook secret. All comparisons are
// constant-time.
type Validator struct {
	secret string
	logger *zap.Logger
}

func NewValidator(secret string, logger *zap.Logger) *Validator {
	return &Validator{secret: secret, logger: logger}
}

// Validate checks the platform-specific signature header against the request
// body. When no secret is configured, validation is skipped with a loud
// warning rather than rejecting all traffic: an operator who has not yet set
// a secret still gets notifications.
func (v *Validator) Validate(platform event.Platform, headers http.Header, body []byte) error {
	if v.secret == "" {
		v.logger.Warn("webhook_secret_not_set_skipping_signature_validation",
			zap.String("platform", string(platform)),
		)
		return nil
	}

	switch platform {
	case event.PlatformGitHub:
		return v.validateGitHub(headers, body)
	case event.PlatformGitLab:
		return v.validateGitLab(headers)
	case event.PlatformBitbucket:
		return v.validateBitbucket(headers, body)
	default:
		v.logger.Warn("no_signature_validator_for_platform", zap.String("platform", string(platform)))
		return nil
	}
}

// validateGitHub checks X-Hub-Signature-256 (sha256=<hex>), falling back to
// the legacy SHA1 X-Hub-Signature header when the newer one is absent.
func (v *Validator) validateGitHub(headers http.Header, body []byte) error {
	header := headers.Get("X-Hub-Signature-256")
	var digest func() hash.Hash
	var prefix string
	if header != "" {
		digest, prefix = sha256.New, "sha256="
	} else {
		header = headers.Get("X-Hub-Signature")
		if header == "" {
			return fmt.Errorf("missing X-Hub-Signature-256 header")
		}
		digest, prefix = sha1.New, "sha1="
	}

	return v.compareHMAC(strings.TrimPrefix(header, prefix), digest, body)
}

// validateGitLab checks the raw shared-secret token in X-Gitlab-Token.
func (v *Validator) validateGitLab(headers http.Header) error {
	token := headers.Get("X-Gitlab-Token")
	if token == "" {
		return fmt.Errorf("missing X-Gitlab-Token header")
	}
	if !hmac.Equal([]byte(token), []byte(v.secret)) {
		return fmt.Errorf("invalid token")
	}
	return nil
}

// validateBitbucket checks the HMAC-SHA256 X-Hub-Signature header.
func (v *Validator) validateBitbucket(headers http.Header, body []byte) error {
	header := headers.Get("X-Hub-Signature")
	if header == "" {
		return fmt.Errorf("missing X-Hub-Signature header")
	}
	return v.compareHMAC(strings.TrimPrefix(header, "sha256="), sha256.New, body)
}

func (v *Validator) compareHMAC(signature string, digest func() hash.Hash, body []byte) error {
	mac := hmac.New(digest, []byte(v.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return fmt.Errorf("invalid signature")
	}
	return nil
}
