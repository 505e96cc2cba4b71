package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/event"
)

func sign256(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func sign1(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestValidateGitHubSHA256(t *testing.T) {
	v := NewValidator("s3cret", zap.NewNop())
	body := []byte(`{"ref":"refs/heads/main"}`)

	headers := http.Header{}
	headers.Set("X-Hub-Signature-256", "sha256="+sign256("s3cret", body))
	require.NoError(t, v.Validate(event.PlatformGitHub, headers, body))

	headers.Set("X-Hub-Signature-256", "sha256="+sign256("wrong", body))
	assert.Error(t, v.Validate(event.PlatformGitHub, headers, body))
}

func TestValidateGitHubLegacySHA1(t *testing.T) {
	v := NewValidator("s3cret", zap.NewNop())
	body := []byte(`{}`)

	headers := http.Header{}
	headers.Set("X-Hub-Signature", "sha1="+sign1("s3cret", body))
	assert.NoError(t, v.Validate(event.PlatformGitHub, headers, body))
}

func TestValidateGitHubMissingHeader(t *testing.T) {
	v := NewValidator("s3cret", zap.NewNop())
	assert.Error(t, v.Validate(event.PlatformGitHub, http.Header{}, []byte(`{}`)))
}

func TestValidateGitLabToken(t *testing.T) {
	v := NewValidator("s3cret", zap.NewNop())

	headers := http.Header{}
	headers.Set("X-Gitlab-Token", "s3cret")
	require.NoError(t, v.Validate(event.PlatformGitLab, headers, nil))

	headers.Set("X-Gitlab-Token", "nope")
	assert.Error(t, v.Validate(event.PlatformGitLab, headers, nil))

	assert.Error(t, v.Validate(event.PlatformGitLab, http.Header{}, nil))
}

func TestValidateBitbucket(t *testing.T) {
	v := NewValidator("s3cret", zap.NewNop())
	body := []byte(`{"push":{}}`)

	headers := http.Header{}
	headers.Set("X-Hub-Signature", "sha256="+sign256("s3cret", body))
	require.NoError(t, v.Validate(event.PlatformBitbucket, headers, body))

	headers.Set("X-Hub-Signature", "sha256="+sign256("s3cret", []byte("tampered")))
	assert.Error(t, v.Validate(event.PlatformBitbucket, headers, body))
}

func TestValidateSkippedWithoutSecret(t *testing.T) {
	v := NewValidator("", zap.NewNop())
	assert.NoError(t, v.Validate(event.PlatformGitHub, http.Header{}, []byte(`{}`)))
	assert.NoError(t, v.Validate(event.PlatformGitLab, http.Header{}, nil))
}
