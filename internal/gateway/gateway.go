// Package gateway validates chat requests and relays them to the model
// provider with bounded retry on rate limiting.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/codyburke970/ai-council/internal/domain"
)

// MaxInputChars is the maximum accepted user input length.
const MaxInputChars = 4000

// Config tunes the gateway's retry policy.
type Config struct {
	// MaxRetries is the number of additional attempts after a rate-limited
	// first attempt.
	MaxRetries int
	// InitialBackoff is the wait before the first retry; it doubles on each
	// subsequent retry.
	InitialBackoff time.Duration
}

// Gateway relays a system prompt, history and user input to the provider and
// normalizes the result into a text payload or a classified Error. It holds
// no state across calls.
type Gateway struct {
	provider Provider
	cfg      Config

	// sleep is replaceable in tests so backoff waits are observable without
	// real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a gateway over the given provider.
func New(provider Provider, cfg Config) *Gateway {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	return &Gateway{
		provider: provider,
		cfg:      cfg,
		sleep:    sleepContext,
	}
}

// Send validates the request, calls the provider with bounded retry on rate
// limiting, and returns the reply text or a classified *Error.
func (g *Gateway) Send(ctx context.Context, systemPrompt, userInput string, history []domain.Message) (string, error) {
	if err := validate(systemPrompt, userInput, history); err != nil {
		return "", err
	}

	if !g.provider.Configured() {
		return "", NewError(KindConfigurationError, "AI provider API key not configured")
	}

	backoff := g.cfg.InitialBackoff
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			slog.Info("rate limited, backing off",
				"attempt", attempt,
				"backoff", backoff,
			)
			if err := g.sleep(ctx, backoff); err != nil {
				return "", classify(err)
			}
			backoff *= 2
		}

		text, err := g.provider.Complete(ctx, systemPrompt, history, userInput)
		if err != nil {
			if g.provider.RateLimited(err) {
				if attempt < g.cfg.MaxRetries {
					continue
				}
				return "", NewError(KindRateLimit,
					fmt.Sprintf("rate limited after %d attempts", attempt+1))
			}
			return "", classify(err)
		}

		if strings.TrimSpace(text) == "" {
			return "", NewError(KindProviderError, "empty response from provider")
		}
		return text, nil
	}
}

func validate(systemPrompt, userInput string, history []domain.Message) error {
	if strings.TrimSpace(systemPrompt) == "" {
		return NewError(KindInvalidInput, "systemPrompt is required")
	}
	if strings.TrimSpace(userInput) == "" {
		return NewError(KindInvalidInput, "userInput is required")
	}
	if utf8.RuneCountInString(userInput) > MaxInputChars {
		return NewError(KindInvalidInput,
			fmt.Sprintf("userInput exceeds %d characters", MaxInputChars))
	}
	for i, m := range history {
		if !m.Role.Valid() {
			return NewError(KindInvalidInput,
				fmt.Sprintf("history entry %d has an invalid role", i))
		}
		if strings.TrimSpace(m.Content) == "" {
			return NewError(KindInvalidInput,
				fmt.Sprintf("history entry %d has empty content", i))
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
