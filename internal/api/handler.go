package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"chat-relay/internal/config"
	app_errors "chat-relay/internal/errors"
	"chat-relay/internal/interfaces"
	"chat-relay/internal/model"
	"chat-relay/internal/service"
)

// ChatHandler exposes the chat, settings and config endpoints.
type ChatHandler struct {
	chat     interfaces.ChatService
	sessions interfaces.SessionStore
	cfg      *config.Config
}

func NewChatHandler(chat interfaces.ChatService, sessions interfaces.SessionStore, cfg *config.Config) *ChatHandler {
	return &ChatHandler{chat: chat, sessions: sessions, cfg: cfg}
}

// PublicConfig is the UI-facing subset of the settings. It must never
// include the system prompt or any credential.
type PublicConfig struct {
	Title          string   `json:"title"`
	Subtitle       string   `json:"subtitle"`
	WelcomeMessage string   `json:"welcome_message"`
	ExampleQueries []string `json:"example_queries"`
}

// SettingsResponse is a session's current settings.
type SettingsResponse struct {
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float64 `json:"temperature"`
}

// UpdateSettingsRequest updates a session's settings. The system prompt is
// always overwritten; the temperature only when present.
type UpdateSettingsRequest struct {
	SessionID    string   `json:"session_id" validate:"required"`
	SystemPrompt string   `json:"system_prompt"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

// UpdateSettingsResponse is returned with the settings that resulted from
// an update, after clamping.
type UpdateSettingsResponse struct {
	Status       string  `json:"status"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float64 `json:"temperature"`
}

// ClearHistoryResponse acknowledges a history reset.
type ClearHistoryResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// GetConfig godoc
// @Summary      UI configuration
// @Description  Returns the public-facing configuration for the chat UI.
// @Tags         Config
// @Produce      json
// @Success      200  {object}  PublicConfig
// @Router       /config [get]
func (h *ChatHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, PublicConfig{
		Title:          h.cfg.App.Title,
		Subtitle:       h.cfg.App.Subtitle,
		WelcomeMessage: h.cfg.App.WelcomeMessage,
		ExampleQueries: h.cfg.ExampleQueries,
	})
}

// GetSettings godoc
// @Summary      Session settings
// @Description  Returns the session's system prompt and temperature, creating the session with defaults when unknown.
// @Tags         Settings
// @Produce      json
// @Param        session_id  query     string  true  "Session identifier"
// @Success      200         {object}  SettingsResponse
// @Failure      400         {object}  ErrorResponse
// @Router       /settings [get]
func (h *ChatHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	sessionID, err := requireSessionID(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	prompt, temperature := h.sessions.Settings(sessionID)
	respondWithJSON(w, http.StatusOK, SettingsResponse{SystemPrompt: prompt, Temperature: temperature})
}

// UpdateSettings godoc
// @Summary      Update session settings
// @Description  Overwrites the session's system prompt and, when supplied, its temperature (clamped to [0.0, 2.0]).
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        settings  body      UpdateSettingsRequest  true  "New settings"
// @Success      200       {object}  UpdateSettingsResponse
// @Failure      400       {object}  ErrorResponse
// @Router       /settings [put]
func (h *ChatHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload"})
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithError(w, err)
		return
	}

	prompt, temperature := h.sessions.UpdateSettings(req.SessionID, req.SystemPrompt, req.Temperature)
	respondWithJSON(w, http.StatusOK, UpdateSettingsResponse{
		Status:       "ok",
		SystemPrompt: prompt,
		Temperature:  temperature,
	})
}

// ClearHistory godoc
// @Summary      Clear conversation history
// @Description  Resets the session's history. Unknown sessions succeed as a no-op.
// @Tags         Chat
// @Produce      json
// @Param        session_id  query     string  true  "Session identifier"
// @Success      200         {object}  ClearHistoryResponse
// @Failure      400         {object}  ErrorResponse
// @Router       /chat/history [delete]
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID, err := requireSessionID(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	h.sessions.ClearHistory(sessionID)
	respondWithJSON(w, http.StatusOK, ClearHistoryResponse{
		Status:    "ok",
		Message:   "Conversation cleared",
		SessionID: sessionID,
	})
}

// HandleChat godoc
// @Summary      Stream a chat turn
// @Description  Streams the assistant's reply as server-sent events, one `data: <JSON>` frame per stream event.
// @Tags         Chat
// @Accept       json
// @Produce      text/event-stream
// @Param        chatRequest  body  service.ChatRequest  true  "Chat message"
// @Success      200  {string}  string  "SSE stream"
// @Failure      400  {object}  ErrorResponse
// @Router       /chat [post]
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req service.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload"})
		return
	}
	if err := validateRequest(&req); err != nil {
		respondWithError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events := make(chan model.StreamEvent)
	go h.chat.StreamTurn(r.Context(), &req, events)

	for event := range events {
		if err := writeStreamEvent(w, event); err != nil {
			slog.Info("Client disconnected mid-stream", "session_id", req.SessionID)
			break
		}
	}
}

func requireSessionID(r *http.Request) (string, error) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		return "", fmt.Errorf("%w: query parameter 'session_id' is required", app_errors.ErrValidation)
	}
	return sessionID, nil
}
