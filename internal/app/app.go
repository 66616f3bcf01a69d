package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"chat-relay/internal/api"
	"chat-relay/internal/config"
	"chat-relay/internal/llm"
	"chat-relay/internal/service"
	"chat-relay/internal/session"
	"chat-relay/internal/turnlog"
)

// StaticDir holds the chat UI served at /.
const StaticDir = "./static"

// App wires the configuration, session store and HTTP server together.
// Everything is constructed once here, at process start, and passed down
// explicitly; nothing is initialized lazily.
type App struct {
	Config   *config.Config
	Sessions *session.Store
	Server   *http.Server
}

// NewApp builds the full dependency graph for a loaded configuration.
func NewApp(cfg *config.Config) *App {
	sessions := session.NewStore(cfg.SystemPrompt, cfg.LLM.Temperature)
	provider := llm.NewOpenAIProvider(cfg.LLM.BaseURL, cfg.APIKey, cfg.LLM.Model, cfg.LLM.MaxTokens)
	turnLog := turnlog.New(cfg.Logging.Enabled, cfg.Logging.File)

	chatService := service.NewChatService(sessions, provider, turnLog, cfg.LLM.ConversationMemorySize)
	chatHandler := api.NewChatHandler(chatService, sessions, cfg)
	router := api.NewRouter(chatHandler, StaticDir)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Disabled for the streaming chat endpoint
		IdleTimeout:       120 * time.Second,
	}

	return &App{Config: cfg, Sessions: sessions, Server: server}
}

// Run loads the configuration, builds the application and serves until the
// listener fails. The settings file is the only fatal dependency; a missing
// API credential is just warned about, the first chat turn will surface it
// as a stream error.
func Run() int {
	cfg, err := config.Load(config.Path())
	if err != nil {
		// slog is not yet configured, so use the default logger for this
		// critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)

	if cfg.APIKey == "" {
		slog.Warn("No API credential in environment; chat turns will fail until one is set", "env", config.EnvAPIKey)
	}

	app := NewApp(cfg)

	slog.Info("Starting server", "port", cfg.App.Port, "model", cfg.LLM.Model)
	if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		return 1
	}

	return 0
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
