package gateway

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codyburke970/ai-council/internal/domain"
)

const (
	completionMaxTokens   = 1000
	completionTemperature = 0.7
)

// OpenAIProvider implements Provider against the OpenAI chat completion API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	apiKey string
}

// NewOpenAIProvider creates a provider for the given credentials. An empty
// apiKey is allowed; the provider reports itself unconfigured and the gateway
// surfaces a configuration error without contacting the API.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	p := &OpenAIProvider{model: model, apiKey: apiKey}
	if apiKey != "" {
		p.client = openai.NewClient(apiKey)
	}
	return p
}

// Configured reports whether an API key is present.
func (p *OpenAIProvider) Configured() bool {
	return p.apiKey != ""
}

// Complete sends one chat completion request and returns the reply text.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt string, history []domain.Message, userInput string) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userInput,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    msgs,
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemperature,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// RateLimited reports whether err is an HTTP 429 from the API. The message
// sniff is a fallback for transports that lose the status code.
func (p *OpenAIProvider) RateLimited(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429
	}
	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}
