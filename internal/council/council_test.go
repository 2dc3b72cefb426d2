package council

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codyburke970/ai-council/internal/domain"
	"github.com/codyburke970/ai-council/internal/gateway"
)

type sentCall struct {
	systemPrompt string
	userInput    string
	history      []domain.Message
}

// fakeSender records calls and answers per system prompt. A gate registered
// for a prompt blocks that persona's call until the gate is closed.
type fakeSender struct {
	mu      sync.Mutex
	calls   []sentCall
	replies map[string]string // systemPrompt -> reply
	errs    map[string]error  // systemPrompt -> error
	gates   map[string]chan struct{}
	started chan string
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		replies: make(map[string]string),
		errs:    make(map[string]error),
		gates:   make(map[string]chan struct{}),
	}
}

func (f *fakeSender) Send(ctx context.Context, systemPrompt, userInput string, history []domain.Message) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sentCall{
		systemPrompt: systemPrompt,
		userInput:    userInput,
		history:      append([]domain.Message(nil), history...),
	})
	gate := f.gates[systemPrompt]
	started := f.started
	f.mu.Unlock()

	if started != nil {
		started <- systemPrompt
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[systemPrompt]; err != nil {
		return "", err
	}
	if reply, ok := f.replies[systemPrompt]; ok {
		return reply, nil
	}
	return "a considered answer", nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSender) callsFor(systemPrompt string) []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentCall
	for _, c := range f.calls {
		if c.systemPrompt == systemPrompt {
			out = append(out, c)
		}
	}
	return out
}

func newTestCouncil(sender Sender) *Council {
	return New(sender, DefaultPersonas(), nil, 5*time.Second)
}

func stateFor(t *testing.T, snap *Snapshot, personaID string) PersonaState {
	t.Helper()
	for _, st := range snap.Personas {
		if st.Persona.ID == personaID {
			return st
		}
	}
	t.Fatalf("persona %s missing from snapshot", personaID)
	return PersonaState{}
}

func TestAskCouncilRejectsInvalidQuestionWithoutCalls(t *testing.T) {
	sender := newFakeSender()
	c := newTestCouncil(sender)

	if _, err := c.AskCouncil(context.Background(), "u1", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Expected ErrEmptyMessage, got %v", err)
	}
	long := strings.Repeat("x", MaxMessageChars+1)
	if _, err := c.AskCouncil(context.Background(), "u1", long); !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("Expected ErrMessageTooLong, got %v", err)
	}
	if sender.callCount() != 0 {
		t.Errorf("Expected zero gateway calls, got %d", sender.callCount())
	}
}

func TestAskCouncilFansOutToEveryPersona(t *testing.T) {
	sender := newFakeSender()
	for _, p := range DefaultPersonas() {
		sender.replies[p.SystemPrompt] = "advice from " + p.ID
	}
	c := newTestCouncil(sender)

	snap, err := c.AskCouncil(context.Background(), "u1", "should I change jobs?")
	if err != nil {
		t.Fatalf("AskCouncil failed: %v", err)
	}

	if sender.callCount() != len(DefaultPersonas()) {
		t.Errorf("Expected %d gateway calls, got %d", len(DefaultPersonas()), sender.callCount())
	}
	for _, p := range DefaultPersonas() {
		st := stateFor(t, snap, p.ID)
		if st.IsTyping {
			t.Errorf("%s: still typing after resolution", p.ID)
		}
		if len(st.Messages) != 2 {
			t.Fatalf("%s: expected 2 messages, got %d", p.ID, len(st.Messages))
		}
		if st.Messages[0].Role != domain.RoleUser || st.Messages[0].Content != "should I change jobs?" {
			t.Errorf("%s: first message is not the question: %+v", p.ID, st.Messages[0])
		}
		if st.Messages[1].Role != domain.RoleAssistant || st.Messages[1].Content != "advice from "+p.ID {
			t.Errorf("%s: unexpected assistant message: %+v", p.ID, st.Messages[1])
		}
		calls := sender.callsFor(p.SystemPrompt)
		if len(calls) != 1 {
			t.Fatalf("%s: expected 1 call, got %d", p.ID, len(calls))
		}
		if len(calls[0].history) != 0 {
			t.Errorf("%s: expected empty history on first send, got %d entries", p.ID, len(calls[0].history))
		}
	}
}

func TestAskCouncilRejectedWhileAnyPersonaTyping(t *testing.T) {
	sender := newFakeSender()
	gate := make(chan struct{})
	for _, p := range DefaultPersonas() {
		sender.gates[p.SystemPrompt] = gate
	}
	sender.started = make(chan string, len(DefaultPersonas()))
	c := newTestCouncil(sender)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := c.AskCouncil(context.Background(), "u1", "first question"); err != nil {
			t.Errorf("AskCouncil failed: %v", err)
		}
	}()

	for range DefaultPersonas() {
		<-sender.started
	}

	if _, err := c.AskCouncil(context.Background(), "u1", "second question"); !errors.Is(err, ErrCouncilBusy) {
		t.Errorf("Expected ErrCouncilBusy, got %v", err)
	}

	close(gate)
	<-done

	if sender.callCount() != len(DefaultPersonas()) {
		t.Errorf("Expected %d gateway calls, got %d", len(DefaultPersonas()), sender.callCount())
	}
}

func TestReplyTargetsSinglePersonaWithFullHistory(t *testing.T) {
	sender := newFakeSender()
	c := newTestCouncil(sender)

	if _, err := c.AskCouncil(context.Background(), "u1", "first question"); err != nil {
		t.Fatalf("AskCouncil failed: %v", err)
	}

	snap, err := c.Reply(context.Background(), "u1", "strategist", "tell me more")
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}

	strategist := stateFor(t, snap, "strategist")
	if len(strategist.Messages) != 4 {
		t.Errorf("strategist: expected 4 messages, got %d", len(strategist.Messages))
	}
	for _, id := range []string{"empath", "innovator"} {
		st := stateFor(t, snap, id)
		if len(st.Messages) != 2 {
			t.Errorf("%s: expected 2 messages, got %d", id, len(st.Messages))
		}
	}

	var prompt string
	for _, p := range DefaultPersonas() {
		if p.ID == "strategist" {
			prompt = p.SystemPrompt
		}
	}
	calls := sender.callsFor(prompt)
	if len(calls) != 2 {
		t.Fatalf("strategist: expected 2 calls, got %d", len(calls))
	}
	if len(calls[1].history) != 2 {
		t.Errorf("Reply: expected 2 history entries, got %d", len(calls[1].history))
	}
	if calls[1].userInput != "tell me more" {
		t.Errorf("Reply: expected userInput %q, got %q", "tell me more", calls[1].userInput)
	}
}

func TestReplySucceedsWhileAnotherPersonaTyping(t *testing.T) {
	personas := DefaultPersonas()
	var empathPrompt, strategistPrompt string
	for _, p := range personas {
		switch p.ID {
		case "empath":
			empathPrompt = p.SystemPrompt
		case "strategist":
			strategistPrompt = p.SystemPrompt
		}
	}

	sender := newFakeSender()
	c := newTestCouncil(sender)
	if _, err := c.AskCouncil(context.Background(), "u1", "first question"); err != nil {
		t.Fatalf("AskCouncil failed: %v", err)
	}

	gate := make(chan struct{})
	sender.mu.Lock()
	sender.gates[empathPrompt] = gate
	sender.started = make(chan string, 1)
	sender.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := c.Reply(context.Background(), "u1", "empath", "how should I feel?"); err != nil {
			t.Errorf("Reply to empath failed: %v", err)
		}
	}()
	<-sender.started

	empathBefore := stateFor(t, c.Snapshot("u1"), "empath")
	if !empathBefore.IsTyping {
		t.Error("empath should be typing while its call is in flight")
	}

	sender.mu.Lock()
	sender.started = nil
	sender.mu.Unlock()

	snap, err := c.Reply(context.Background(), "u1", "strategist", "what about risk?")
	if err != nil {
		t.Fatalf("Reply to strategist failed: %v", err)
	}

	strategist := stateFor(t, snap, "strategist")
	if len(strategist.Messages) != 4 {
		t.Errorf("strategist: expected 4 messages, got %d", len(strategist.Messages))
	}
	empath := stateFor(t, snap, "empath")
	if !empath.IsTyping {
		t.Error("empath typing flag was altered by the strategist send")
	}
	if len(empath.Messages) != 3 {
		t.Errorf("empath: expected 3 messages (question, reply, follow-up), got %d", len(empath.Messages))
	}

	close(gate)
	<-done

	if got := len(sender.callsFor(strategistPrompt)); got != 2 {
		t.Errorf("strategist: expected 2 calls, got %d", got)
	}
}

func TestReplyRejectedWhileSamePersonaTyping(t *testing.T) {
	personas := DefaultPersonas()
	var empathPrompt string
	for _, p := range personas {
		if p.ID == "empath" {
			empathPrompt = p.SystemPrompt
		}
	}

	sender := newFakeSender()
	gate := make(chan struct{})
	sender.gates[empathPrompt] = gate
	sender.started = make(chan string, 1)
	c := newTestCouncil(sender)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := c.Reply(context.Background(), "u1", "empath", "first"); err != nil {
			t.Errorf("Reply failed: %v", err)
		}
	}()
	<-sender.started

	if _, err := c.Reply(context.Background(), "u1", "empath", "second"); !errors.Is(err, ErrPersonaBusy) {
		t.Errorf("Expected ErrPersonaBusy, got %v", err)
	}

	close(gate)
	<-done
}

func TestFailedSendRecordsAttemptAndRetryResends(t *testing.T) {
	personas := DefaultPersonas()
	var strategistPrompt string
	for _, p := range personas {
		if p.ID == "strategist" {
			strategistPrompt = p.SystemPrompt
		}
	}

	sender := newFakeSender()
	sender.errs[strategistPrompt] = gateway.NewError(gateway.KindProviderError, "upstream exploded")
	c := newTestCouncil(sender)

	snap, err := c.AskCouncil(context.Background(), "u1", "risky question")
	if err != nil {
		t.Fatalf("AskCouncil failed: %v", err)
	}

	strategist := stateFor(t, snap, "strategist")
	if strategist.Error == "" {
		t.Error("strategist: expected an inline error after failure")
	}
	if strategist.FailedAttempt == nil {
		t.Fatal("strategist: expected a FailedAttempt record")
	}
	if strategist.FailedAttempt.Message != "risky question" {
		t.Errorf("FailedAttempt: expected %q, got %q", "risky question", strategist.FailedAttempt.Message)
	}
	// The user's own message stays visible after the failure.
	if len(strategist.Messages) != 1 || strategist.Messages[0].Role != domain.RoleUser {
		t.Errorf("strategist: expected the lone user message to remain, got %+v", strategist.Messages)
	}
	// Other personas resolved independently.
	for _, id := range []string{"empath", "innovator"} {
		st := stateFor(t, snap, id)
		if st.Error != "" || st.FailedAttempt != nil {
			t.Errorf("%s: failure leaked across personas", id)
		}
		if len(st.Messages) != 2 {
			t.Errorf("%s: expected 2 messages, got %d", id, len(st.Messages))
		}
	}

	// Retry after the provider recovers.
	sender.mu.Lock()
	delete(sender.errs, strategistPrompt)
	sender.replies[strategistPrompt] = "recovered advice"
	sender.mu.Unlock()

	snap, err = c.Retry(context.Background(), "u1", "strategist")
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}

	calls := sender.callsFor(strategistPrompt)
	if len(calls) != 2 {
		t.Fatalf("strategist: expected 2 calls, got %d", len(calls))
	}
	if calls[1].userInput != "risky question" {
		t.Errorf("Retry resent %q, expected the failed message", calls[1].userInput)
	}

	strategist = stateFor(t, snap, "strategist")
	if strategist.FailedAttempt != nil {
		t.Error("FailedAttempt not cleared after successful retry")
	}
	if strategist.Error != "" {
		t.Errorf("Error not cleared after successful retry: %q", strategist.Error)
	}
	// Exactly one assistant message appended, no duplicate user message.
	if len(strategist.Messages) != 2 {
		t.Fatalf("strategist: expected 2 messages after retry, got %d", len(strategist.Messages))
	}
	if strategist.Messages[1].Role != domain.RoleAssistant || strategist.Messages[1].Content != "recovered advice" {
		t.Errorf("strategist: unexpected retry result: %+v", strategist.Messages[1])
	}
}

func TestRetryWithoutFailureIsNoop(t *testing.T) {
	sender := newFakeSender()
	c := newTestCouncil(sender)

	snap, err := c.Retry(context.Background(), "u1", "strategist")
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if sender.callCount() != 0 {
		t.Errorf("Expected zero gateway calls, got %d", sender.callCount())
	}
	if st := stateFor(t, snap, "strategist"); len(st.Messages) != 0 {
		t.Errorf("Expected empty conversation, got %d messages", len(st.Messages))
	}
}

func TestUnknownPersonaRejected(t *testing.T) {
	sender := newFakeSender()
	c := newTestCouncil(sender)

	if _, err := c.Reply(context.Background(), "u1", "oracle", "hello"); !errors.Is(err, ErrUnknownPersona) {
		t.Errorf("Expected ErrUnknownPersona, got %v", err)
	}
	if _, err := c.Retry(context.Background(), "u1", "oracle"); !errors.Is(err, ErrUnknownPersona) {
		t.Errorf("Expected ErrUnknownPersona, got %v", err)
	}
}

func TestResetDropsSession(t *testing.T) {
	sender := newFakeSender()
	c := newTestCouncil(sender)

	if _, err := c.AskCouncil(context.Background(), "u1", "a question"); err != nil {
		t.Fatalf("AskCouncil failed: %v", err)
	}
	c.Reset("u1")

	for _, st := range c.Snapshot("u1").Personas {
		if len(st.Messages) != 0 {
			t.Errorf("%s: expected empty conversation after reset, got %d messages", st.Persona.ID, len(st.Messages))
		}
	}
}

func TestTimestampsMonotonicWithinConversation(t *testing.T) {
	sender := newFakeSender()
	c := newTestCouncil(sender)

	// A clock that runs backwards exercises the append clamp. The mutex
	// matters: resolve calls now() from the fan-out goroutines.
	var clockMu sync.Mutex
	base := time.Now()
	step := 0
	c.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		step++
		return base.Add(-time.Duration(step) * time.Second)
	}

	if _, err := c.AskCouncil(context.Background(), "u1", "first"); err != nil {
		t.Fatalf("AskCouncil failed: %v", err)
	}
	if _, err := c.Reply(context.Background(), "u1", "strategist", "second"); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}

	st := stateFor(t, c.Snapshot("u1"), "strategist")
	for i := 1; i < len(st.Messages); i++ {
		if st.Messages[i].Timestamp.Before(st.Messages[i-1].Timestamp) {
			t.Errorf("message %d timestamp went backwards", i)
		}
	}
}
