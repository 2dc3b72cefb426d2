package gateway

import (
	"context"

	"github.com/codyburke970/ai-council/internal/domain"
)

// Provider is the outbound text-completion port. The provider is opaque to
// the rest of the system except for its rate-limit signal, which the adapter
// itself detects.
type Provider interface {
	// Complete issues one text-completion request carrying the system
	// prompt, the history in order, and the new user input appended last.
	Complete(ctx context.Context, systemPrompt string, history []domain.Message, userInput string) (string, error)

	// RateLimited reports whether err is the provider's rate-limit signal.
	// Detection lives in the adapter so the gateway never inspects raw
	// provider errors.
	RateLimited(err error) bool

	// Configured reports whether provider credentials are present.
	Configured() bool
}
