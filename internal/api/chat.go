package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/codyburke970/ai-council/internal/domain"
	"github.com/codyburke970/ai-council/internal/gateway"
)

// wireMessage is a conversation history entry as it appears on the wire.
// Timestamps are epoch milliseconds.
type wireMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

type chatRequest struct {
	SystemPrompt        string        `json:"systemPrompt"`
	UserInput           string        `json:"userInput"`
	ConversationHistory []wireMessage `json:"conversationHistory"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// HandleChat handles POST /api/chat: the thin proxy route that forwards a
// system prompt and user input to the model provider and relays the text
// response.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, string(gateway.KindInvalidInput), "invalid request body")
		return
	}

	history := make([]domain.Message, 0, len(req.ConversationHistory))
	for _, m := range req.ConversationHistory {
		history = append(history, domain.Message{
			Role:      domain.Role(m.Role),
			Content:   m.Content,
			Timestamp: time.UnixMilli(m.Timestamp),
		})
	}

	text, err := h.gw.Send(r.Context(), req.SystemPrompt, req.UserInput, history)
	if err != nil {
		kind := gateway.KindOf(err)
		// Relay only messages the gateway authors itself; provider and
		// network failures may carry raw upstream detail, which stays in
		// the log.
		message := "failed to process request"
		var ge *gateway.Error
		if errors.As(err, &ge) {
			switch ge.Kind {
			case gateway.KindInvalidInput, gateway.KindRateLimit, gateway.KindConfigurationError:
				message = ge.Message
			}
		}
		slog.Warn("chat request failed",
			"kind", string(kind),
			"error", err,
			"input_length", len(req.UserInput),
			"history_length", len(req.ConversationHistory),
		)
		Error(w, statusForKind(kind), string(kind), message)
		return
	}

	JSON(w, http.StatusOK, chatResponse{Response: text})
}
