package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ismoilovdevml/webhook-bridge/internal/domain/destination"
	"github.com/ismoilovdevml/webhook-bridge/internal/formatter"
)

// ConfigurationError means a destination's config map is missing a field the
// provider needs. It is permanent: retrying the same destination cannot help.
type ConfigurationError struct {
	Provider string
	Field    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: missing required config field %q", e.Provider, e.Field)
}

// SendError is a delivery failure against the remote service. It may be
// transient, so dispatch retries it.
type SendError struct {
	Provider string
	Reason   string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
}

// Provider delivers a rendered message to one chat service.
type Provider interface {
	Send(ctx context.Context, msg formatter.Message) error
	TestConnection(ctx context.Context) error
}

// Deps carries the shared plumbing injected into every provider.
type Deps struct {
	Client  *http.Client
	Breaker CircuitBreaker
	Logger  *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Client == nil {
		d.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if d.Breaker == nil {
		d.Breaker = NoopBreaker()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// New builds the provider for a destination. Config must already be
// decrypted. Construction validates required fields, so a misconfigured
// destination fails here rather than mid-dispatch.
func New(d *destination.Destination, deps Deps) (Provider, error) {
	deps = deps.withDefaults()

	switch d.Type {
	case destination.TypeTelegram:
		return NewTelegram(d.Config, deps)
	case destination.TypeSlack:
		return NewSlack(d.Config, deps)
	case destination.TypeDiscord:
		return NewDiscord(d.Config, deps)
	case destination.TypeMattermost:
		return NewMattermost(d.Config, deps)
	case destination.TypeEmail:
		return NewEmail(d.Config, deps)
	}
	return nil, fmt.Errorf("unsupported destination type %q", d.Type)
}

func required(config map[string]string, providerName, field string) (string, error) {
	if v := config[field]; v != "" {
		return v, nil
	}
	return "", &ConfigurationError{Provider: providerName, Field: field}
}

func optional(config map[string]string, field, def string) string {
	if v := config[field]; v != "" {
		return v
	}
	return def
}
