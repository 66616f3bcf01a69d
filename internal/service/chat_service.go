package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-relay/internal/llm"
	"chat-relay/internal/model"
	"chat-relay/internal/session"
	"chat-relay/internal/turnlog"
)

// ChatRequest is the client's input for one chat turn.
type ChatRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
}

// ChatService orchestrates one chat turn: session lookup, the streaming
// completion call, history mutation and the interaction log.
type ChatService struct {
	sessions   *session.Store
	llm        llm.CompletionProvider
	log        *turnlog.Logger
	memorySize int
}

func NewChatService(sessions *session.Store, provider llm.CompletionProvider, log *turnlog.Logger, memorySize int) *ChatService {
	return &ChatService{
		sessions:   sessions,
		llm:        provider,
		log:        log,
		memorySize: memorySize,
	}
}

// StreamTurn drives one turn and forwards every stream event to out in
// arrival order, without buffering. On a done event the turn is committed:
// the user message and the concatenated answer are appended to the
// session's history and one log record is written. On an error event
// nothing is mutated and nothing is logged. The out channel is always
// closed when the turn ends.
func (s *ChatService) StreamTurn(ctx context.Context, req *ChatRequest, out chan<- model.StreamEvent) {
	defer close(out)

	systemPrompt, temperature := s.sessions.Settings(req.SessionID)
	history := s.sessions.RecentHistory(req.SessionID, s.memorySize)
	start := time.Now()

	llmReq := &llm.ChatRequest{
		UserMessage:  req.Message,
		History:      history,
		SystemPrompt: systemPrompt,
		Temperature:  temperature,
	}
	events := make(chan model.StreamEvent)
	go s.llm.ChatStream(ctx, llmReq, events)

	var answer strings.Builder
	var usage model.Usage

	for event := range events {
		switch event.Type {
		case model.EventToken:
			if text, ok := event.Data.(string); ok {
				answer.WriteString(text)
			}
		case model.EventUsage:
			if u, ok := event.Data.(model.Usage); ok {
				usage = u
			}
		case model.EventDone:
			// Commit before the client sees the terminal event.
			s.sessions.AppendTurn(req.SessionID, req.Message, answer.String())
			s.log.Record(turnlog.Entry{
				ID:           uuid.NewString(),
				Timestamp:    time.Now(),
				SessionID:    req.SessionID,
				Question:     req.Message,
				Answer:       answer.String(),
				InputTokens:  usage.InputTokens,
				OutputTokens: usage.OutputTokens,
				Temperature:  temperature,
				DurationMS:   time.Since(start).Milliseconds(),
			})
		case model.EventError:
			slog.Warn("Completion stream failed", "session_id", req.SessionID, "error", event.Data)
		}

		select {
		case out <- event:
		case <-ctx.Done():
			// Client is gone; stop forwarding and let the provider unwind
			// via the shared context.
			return
		}
	}
}
