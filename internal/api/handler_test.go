// Black box tests for the API layer: only exported identifiers are used.
package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/api"
	"chat-relay/internal/config"
	"chat-relay/internal/model"
	"chat-relay/internal/service"
	"chat-relay/internal/session"
)

// MockChatService is a hand-rolled testify mock for the ChatService
// interface; the streamed events are injected through Run.
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) StreamTurn(ctx context.Context, req *service.ChatRequest, out chan<- model.StreamEvent) {
	m.Called(ctx, req, out)
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Title:          "Test Chat",
			Subtitle:       "A test subtitle",
			Port:           8000,
			WelcomeMessage: "Welcome!",
		},
		LLM:            config.LLMConfig{Temperature: 0.7},
		SystemPrompt:   "TOP-SECRET-PROMPT",
		ExampleQueries: []string{"What is Go?"},
		APIKey:         "sk-super-secret",
	}
}

func setupChatHandler(t *testing.T) (*api.ChatHandler, *MockChatService, *session.Store) {
	t.Helper()
	cfg := testConfig()
	mockChatSvc := &MockChatService{}
	sessions := session.NewStore(cfg.SystemPrompt, cfg.LLM.Temperature)
	handler := api.NewChatHandler(mockChatSvc, sessions, cfg)
	return handler, mockChatSvc, sessions
}

// sseFrame is the decoded shape of one `data:` frame.
type sseFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func parseSSE(t *testing.T, body string) []sseFrame {
	t.Helper()
	var frames []sseFrame
	for _, chunk := range strings.Split(body, "\n\n") {
		if !strings.HasPrefix(chunk, "data: ") {
			continue
		}
		var frame sseFrame
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &frame))
		frames = append(frames, frame)
	}
	return frames
}

func TestChatHandler_GetConfig(t *testing.T) {
	handler, _, _ := setupChatHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rr := httptest.NewRecorder()
	handler.GetConfig(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, "Test Chat", payload["title"])
	assert.Equal(t, "A test subtitle", payload["subtitle"])
	assert.Equal(t, "Welcome!", payload["welcome_message"])

	// The public config must never leak the system prompt or a credential.
	assert.NotContains(t, payload, "system_prompt")
	assert.NotContains(t, rr.Body.String(), "TOP-SECRET-PROMPT")
	assert.NotContains(t, rr.Body.String(), "sk-super-secret")
}

func TestChatHandler_GetSettings(t *testing.T) {
	t.Run("Unknown session returns defaults", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/settings?session_id=fresh", nil)
		rr := httptest.NewRecorder()
		handler.GetSettings(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp api.SettingsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "TOP-SECRET-PROMPT", resp.SystemPrompt)
		assert.Equal(t, 0.7, resp.Temperature)
	})

	t.Run("Missing session_id is rejected", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
		rr := httptest.NewRecorder()
		handler.GetSettings(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestChatHandler_UpdateSettings(t *testing.T) {
	putSettings := func(t *testing.T, handler *api.ChatHandler, body string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body))
		rr := httptest.NewRecorder()
		handler.UpdateSettings(rr, req)
		return rr
	}

	t.Run("Temperature 5.0 is stored as 2.0", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)
		rr := putSettings(t, handler, `{"session_id":"s1","system_prompt":"p","temperature":5.0}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp api.UpdateSettingsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, 2.0, resp.Temperature)
	})

	t.Run("Temperature -1.0 is stored as 0.0", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)
		rr := putSettings(t, handler, `{"session_id":"s1","system_prompt":"p","temperature":-1.0}`)

		var resp api.UpdateSettingsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 0.0, resp.Temperature)
	})

	t.Run("Omitted temperature keeps prior value, prompt overwritten", func(t *testing.T) {
		handler, _, sessions := setupChatHandler(t)
		sessions.UpdateSettings("s1", "old prompt", func() *float64 { v := 1.5; return &v }())

		rr := putSettings(t, handler, `{"session_id":"s1","system_prompt":"new prompt"}`)

		var resp api.UpdateSettingsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "new prompt", resp.SystemPrompt)
		assert.Equal(t, 1.5, resp.Temperature)
	})

	t.Run("Failure - invalid JSON", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)
		rr := putSettings(t, handler, `{invalid`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Failure - missing session_id", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)
		rr := putSettings(t, handler, `{"system_prompt":"p"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Field 'SessionID' failed on the 'required' tag")
	})
}

func TestChatHandler_ClearHistory(t *testing.T) {
	t.Run("Unknown session still succeeds", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)

		req := httptest.NewRequest(http.MethodDelete, "/api/chat/history?session_id=ghost", nil)
		rr := httptest.NewRecorder()
		handler.ClearHistory(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp api.ClearHistoryResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "ghost", resp.SessionID)

		// A later settings read for the same identifier still sees defaults.
		req = httptest.NewRequest(http.MethodGet, "/api/settings?session_id=ghost", nil)
		rr = httptest.NewRecorder()
		handler.GetSettings(rr, req)
		var settings api.SettingsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &settings))
		assert.Equal(t, 0.7, settings.Temperature)
	})

	t.Run("Missing session_id is rejected", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)
		req := httptest.NewRequest(http.MethodDelete, "/api/chat/history", nil)
		rr := httptest.NewRecorder()
		handler.ClearHistory(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestChatHandler_HandleChat(t *testing.T) {
	t.Run("Success - events framed as SSE in order", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)

		mockChatSvc.On("StreamTurn", mock.Anything, mock.MatchedBy(func(req *service.ChatRequest) bool {
			return req.Message == "hi" && req.SessionID == "s1"
		}), mock.Anything).Run(func(args mock.Arguments) {
			out := args.Get(2).(chan<- model.StreamEvent)
			out <- model.TokenEvent("Hel")
			out <- model.TokenEvent("lo")
			out <- model.UsageEvent(model.Usage{InputTokens: 1, OutputTokens: 2})
			out <- model.DoneEvent()
			close(out)
		}).Return().Once()

		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi","session_id":"s1"}`))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))

		frames := parseSSE(t, rr.Body.String())
		require.Len(t, frames, 4)
		assert.Equal(t, "token", frames[0].Type)
		assert.Equal(t, "token", frames[1].Type)
		assert.Equal(t, "usage", frames[2].Type)
		assert.Equal(t, "done", frames[3].Type)

		var fragment string
		require.NoError(t, json.Unmarshal(frames[0].Data, &fragment))
		assert.Equal(t, "Hel", fragment)

		mockChatSvc.AssertExpectations(t)
	})

	t.Run("Error stream - done never follows error", func(t *testing.T) {
		handler, mockChatSvc, _ := setupChatHandler(t)

		mockChatSvc.On("StreamTurn", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			out := args.Get(2).(chan<- model.StreamEvent)
			out <- model.TokenEvent("par")
			out <- model.ErrorEvent("LLM error: upstream failed")
			close(out)
		}).Return().Once()

		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi","session_id":"s1"}`))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)

		frames := parseSSE(t, rr.Body.String())
		require.Len(t, frames, 2)
		assert.Equal(t, "token", frames[0].Type)
		assert.Equal(t, "error", frames[1].Type)
	})

	t.Run("Failure - invalid JSON body", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{invalid`))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Failure - missing message", func(t *testing.T) {
		handler, _, _ := setupChatHandler(t)
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"session_id":"s1"}`))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Field 'Message' failed on the 'required' tag")
	})
}
