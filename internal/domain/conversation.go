package domain

import (
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a role accepted on the wire.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single conversation entry. Messages are append-only and belong
// to exactly one persona's conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the ordered message history for one persona, plus the
// transient flags the orchestrator maintains while a send is in flight.
type Conversation struct {
	PersonaID string    `json:"persona_id"`
	Messages  []Message `json:"messages"`
	IsTyping  bool      `json:"is_typing"`
	Error     string    `json:"error,omitempty"`
}

// Append adds a message to the conversation, clamping its timestamp so that
// timestamps stay monotonically non-decreasing within the conversation.
func (c *Conversation) Append(msg Message) {
	if n := len(c.Messages); n > 0 {
		if last := c.Messages[n-1].Timestamp; msg.Timestamp.Before(last) {
			msg.Timestamp = last
		}
	}
	c.Messages = append(c.Messages, msg)
}

// LastMessage returns the most recent message, or nil for an empty
// conversation.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// FailedAttempt records the last message that failed to get a reply for one
// persona. At most one exists per persona; it is overwritten on a new failure
// and cleared on success or on a fresh (non-retry) send.
type FailedAttempt struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
