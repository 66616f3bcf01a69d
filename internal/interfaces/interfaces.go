package interfaces

import (
	"context"

	"chat-relay/internal/model"
	"chat-relay/internal/service"
)

// This file defines the interfaces for our core services. Depending on
// these interfaces instead of concrete implementations decouples the API
// layer from the service layer and allows mocking in tests.

// ChatService defines the contract for chat turn orchestration.
type ChatService interface {
	StreamTurn(ctx context.Context, req *service.ChatRequest, out chan<- model.StreamEvent)
}

// SessionStore defines the contract for per-session settings and history
// management. Every operation treats an unknown session identifier as
// "create with defaults" or as a no-op, never as an error.
type SessionStore interface {
	Settings(sessionID string) (systemPrompt string, temperature float64)
	UpdateSettings(sessionID, systemPrompt string, temperature *float64) (string, float64)
	ClearHistory(sessionID string)
}
