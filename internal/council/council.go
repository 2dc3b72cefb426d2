// Package council coordinates the persona conversations: it fans a question
// out to every persona concurrently, tracks per-persona typing and error
// state, and supports threaded follow-ups and retries against a single
// persona.
package council

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/codyburke970/ai-council/internal/domain"
	"github.com/codyburke970/ai-council/internal/gateway"
)

// MaxMessageChars mirrors the gateway's input limit so oversized questions
// are rejected locally without a gateway call.
const MaxMessageChars = gateway.MaxInputChars

var (
	// ErrEmptyMessage rejects blank questions and replies.
	ErrEmptyMessage = errors.New("council: message is empty")
	// ErrMessageTooLong rejects messages over MaxMessageChars.
	ErrMessageTooLong = fmt.Errorf("council: message exceeds %d characters", MaxMessageChars)
	// ErrCouncilBusy rejects a fan-out while any persona is still typing.
	ErrCouncilBusy = errors.New("council: a persona is still responding")
	// ErrPersonaBusy rejects a directed send while that persona is typing.
	ErrPersonaBusy = errors.New("council: persona is still responding")
	// ErrUnknownPersona rejects sends to a persona outside the fixed set.
	ErrUnknownPersona = errors.New("council: unknown persona")
)

// Sender is the gateway port the council depends on.
type Sender interface {
	Send(ctx context.Context, systemPrompt, userInput string, history []domain.Message) (string, error)
}

// Council owns the per-user council sessions. Each session holds exactly one
// conversation per persona, created lazily and dropped on Reset.
type Council struct {
	gw       Sender
	personas []domain.Persona
	hub      *Hub
	timeout  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// session is one user's council state. Its mutex guards the conversations and
// failed-attempt records; a persona's IsTyping flag is the single-flight gate
// for sends to that persona.
type session struct {
	mu            sync.Mutex
	conversations map[string]*domain.Conversation
	failed        map[string]*domain.FailedAttempt
}

// New creates a council over the given personas. hub may be nil when no
// stream consumers exist (tests, TUI-less deployments).
func New(gw Sender, personas []domain.Persona, hub *Hub, timeout time.Duration) *Council {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Council{
		gw:       gw,
		personas: personas,
		hub:      hub,
		timeout:  timeout,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Personas returns the fixed persona set.
func (c *Council) Personas() []domain.Persona {
	return c.personas
}

// PersonaState is one persona's slice of a council snapshot.
type PersonaState struct {
	Persona       domain.Persona        `json:"persona"`
	Messages      []domain.Message      `json:"messages"`
	IsTyping      bool                  `json:"is_typing"`
	Error         string                `json:"error,omitempty"`
	FailedAttempt *domain.FailedAttempt `json:"failed_attempt,omitempty"`
}

// Snapshot is a point-in-time copy of a user's council state.
type Snapshot struct {
	Personas []PersonaState `json:"personas"`
}

// AskCouncil appends the question to every persona's conversation and issues
// one gateway call per persona concurrently. It blocks until every persona
// has resolved; each persona's state updates independently as its own call
// finishes, and one persona's failure never alters another's conversation.
func (c *Council) AskCouncil(ctx context.Context, userID, question string) (*Snapshot, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(question) > MaxMessageChars {
		return nil, ErrMessageTooLong
	}

	s := c.session(userID)

	s.mu.Lock()
	for _, p := range c.personas {
		if s.conversations[p.ID].IsTyping {
			s.mu.Unlock()
			return nil, ErrCouncilBusy
		}
	}
	// Begin every send under one lock so the fan-out is atomic with respect
	// to competing callers.
	histories := make(map[string][]domain.Message, len(c.personas))
	now := c.now()
	for _, p := range c.personas {
		histories[p.ID] = s.beginLocked(p.ID, question, false, now)
	}
	s.mu.Unlock()

	for _, p := range c.personas {
		c.publish(userID, Event{Type: EventTyping, PersonaID: p.ID, IsTyping: true})
	}

	var wg sync.WaitGroup
	for _, p := range c.personas {
		wg.Add(1)
		go func(p domain.Persona) {
			defer wg.Done()
			c.resolve(ctx, userID, s, p, question, histories[p.ID])
		}(p)
	}
	wg.Wait()

	return c.Snapshot(userID), nil
}

// Reply sends a follow-up to a single persona with that persona's full
// history. Other personas are untouched.
func (c *Council) Reply(ctx context.Context, userID, personaID, message string) (*Snapshot, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxMessageChars {
		return nil, ErrMessageTooLong
	}
	p, ok := c.persona(personaID)
	if !ok {
		return nil, ErrUnknownPersona
	}

	s := c.session(userID)

	s.mu.Lock()
	if s.conversations[p.ID].IsTyping {
		s.mu.Unlock()
		return nil, ErrPersonaBusy
	}
	history := s.beginLocked(p.ID, message, false, c.now())
	s.mu.Unlock()

	c.publish(userID, Event{Type: EventTyping, PersonaID: p.ID, IsTyping: true})
	c.resolve(ctx, userID, s, p, message, history)

	return c.Snapshot(userID), nil
}

// Retry re-sends the persona's recorded failed message. Without a recorded
// failure it is a no-op and returns the unchanged snapshot.
func (c *Council) Retry(ctx context.Context, userID, personaID string) (*Snapshot, error) {
	p, ok := c.persona(personaID)
	if !ok {
		return nil, ErrUnknownPersona
	}

	s := c.session(userID)

	s.mu.Lock()
	fa := s.failed[p.ID]
	if fa == nil {
		s.mu.Unlock()
		return c.Snapshot(userID), nil
	}
	if s.conversations[p.ID].IsTyping {
		s.mu.Unlock()
		return nil, ErrPersonaBusy
	}
	message := fa.Message
	history := s.beginLocked(p.ID, message, true, c.now())
	s.mu.Unlock()

	c.publish(userID, Event{Type: EventTyping, PersonaID: p.ID, IsTyping: true})
	c.resolve(ctx, userID, s, p, message, history)

	return c.Snapshot(userID), nil
}

// Reset drops the user's council session, the server-side equivalent of a
// page reload.
func (c *Council) Reset(userID string) {
	c.mu.Lock()
	delete(c.sessions, userID)
	c.mu.Unlock()
	slog.Info("council session reset", "user_id", userID)
}

// Snapshot returns a deep copy of the user's council state in persona order.
func (c *Council) Snapshot(userID string) *Snapshot {
	s := c.session(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{Personas: make([]PersonaState, 0, len(c.personas))}
	for _, p := range c.personas {
		conv := s.conversations[p.ID]
		state := PersonaState{
			Persona:  p,
			Messages: append([]domain.Message(nil), conv.Messages...),
			IsTyping: conv.IsTyping,
			Error:    conv.Error,
		}
		if fa := s.failed[p.ID]; fa != nil {
			copied := *fa
			state.FailedAttempt = &copied
		}
		snap.Personas = append(snap.Personas, state)
	}
	return snap
}

// beginLocked marks the persona as typing and, for fresh sends, clears the
// failed attempt and appends the user message. It returns the history to hand
// to the gateway, which excludes the message being sent because the gateway
// appends it last. Caller holds s.mu.
func (s *session) beginLocked(personaID, message string, isRetry bool, now time.Time) []domain.Message {
	conv := s.conversations[personaID]
	conv.IsTyping = true
	conv.Error = ""
	if !isRetry {
		delete(s.failed, personaID)
		conv.Append(domain.Message{Role: domain.RoleUser, Content: message, Timestamp: now})
	}

	history := append([]domain.Message(nil), conv.Messages...)
	if n := len(history); n > 0 && history[n-1].Role == domain.RoleUser && history[n-1].Content == message {
		history = history[:n-1]
	}
	return history
}

// resolve runs one persona's gateway call under the 30-second deadline and
// applies the outcome to that persona's partition of the session only.
func (c *Council) resolve(ctx context.Context, userID string, s *session, p domain.Persona, message string, history []domain.Message) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.gw.Send(cctx, p.SystemPrompt, message, history)
	now := c.now()

	s.mu.Lock()
	conv := s.conversations[p.ID]
	conv.IsTyping = false

	if err != nil {
		kind := gateway.KindOf(err)
		conv.Error = UserMessage(kind)
		s.failed[p.ID] = &domain.FailedAttempt{Message: message, Timestamp: now}
		s.mu.Unlock()

		slog.Warn("persona send failed",
			"user_id", userID,
			"persona", p.ID,
			"kind", string(kind),
			"error", err,
		)
		c.publish(userID, Event{
			Type:      EventError,
			PersonaID: p.ID,
			Error:     UserMessage(kind),
			Code:      string(kind),
		})
		return
	}

	conv.Append(domain.Message{Role: domain.RoleAssistant, Content: text, Timestamp: now})
	appended := *conv.LastMessage()
	conv.Error = ""
	delete(s.failed, p.ID)
	s.mu.Unlock()

	c.publish(userID, Event{Type: EventMessage, PersonaID: p.ID, Message: &appended})
}

func (c *Council) publish(userID string, ev Event) {
	if c.hub != nil {
		c.hub.Publish(userID, ev)
	}
}

func (c *Council) persona(id string) (domain.Persona, bool) {
	for _, p := range c.personas {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Persona{}, false
}

func (c *Council) session(userID string) *session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions[userID]; ok {
		return s
	}
	s := &session{
		conversations: make(map[string]*domain.Conversation, len(c.personas)),
		failed:        make(map[string]*domain.FailedAttempt),
	}
	for _, p := range c.personas {
		s.conversations[p.ID] = &domain.Conversation{PersonaID: p.ID}
	}
	c.sessions[userID] = s
	return s
}

// UserMessage maps an error kind to the short text shown inline in the
// persona's column.
func UserMessage(kind gateway.ErrorKind) string {
	switch kind {
	case gateway.KindInvalidInput:
		return "Please check your input and try again."
	case gateway.KindRateLimit:
		return "You've reached the rate limit. Please wait a moment before trying again."
	case gateway.KindConfigurationError:
		return "The AI service is not configured."
	case gateway.KindTimeout:
		return "The request timed out. Please try again."
	case gateway.KindNetworkError:
		return "Could not reach the AI service. Check your connection and try again."
	case gateway.KindProviderError:
		return "The AI service is temporarily unavailable. Please try again later."
	default:
		return "An unexpected error occurred."
	}
}
