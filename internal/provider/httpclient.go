package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreaker shields providers from hammering an outage.
type CircuitBreaker interface {
	Execute(fn func() error) error
}

type noopBreaker struct{}

func (n *noopBreaker) Execute(fn func() error) error {
	return fn()
}

func NoopBreaker() CircuitBreaker {
	return &noopBreaker{}
}

type gobreakerWrapper struct {
	cb *gobreaker.CircuitBreaker
}

func (g *gobreakerWrapper) Execute(fn func() error) error {
	_, err := g.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// BreakerSettings tunes the delivery circuit breaker.
type BreakerSettings struct {
	FailureThreshold uint32
	MinRequests      uint32
	RecoveryTime     time.Duration
	SamplingDuration time.Duration
}

func NewBreaker(name string, s BreakerSettings) CircuitBreaker {
	settings := gobreaker.Settings{
		Name: name,

		Interval: s.SamplingDuration,
		Timeout:  s.RecoveryTime,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return counts.TotalFailures >= s.FailureThreshold
		},

		IsSuccessful: func(err error) bool {
			return err == nil
		},
	}

	return &gobreakerWrapper{cb: gobreaker.NewCircuitBreaker(settings)}
}

// maxResponseBody bounds how much of an error response gets read back into
// log lines and outcome rows.
const maxResponseBody = 4 << 10

// postJSON sends a JSON body through the breaker and returns status and a
// bounded response body.
func postJSON(ctx context.Context, deps Deps, url string, body any) (int, string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, "", fmt.Errorf("encode request: %w", err)
	}

	var status int
	var respBody string
	err = deps.Breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := deps.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		status = resp.StatusCode
		respBody = string(data)
		return nil
	})
	return status, respBody, err
}
