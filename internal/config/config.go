package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	app_errors "chat-relay/internal/errors"
)

// DefaultPath is where Load looks for the settings file unless the
// CONFIG_PATH environment variable points elsewhere.
const DefaultPath = "config.yaml"

// EnvAPIKey names the environment variable holding the completion API
// credential. Its absence never fails loading; validation is deferred to
// the point of use.
const EnvAPIKey = "OPENAI_API_KEY"

// AppConfig holds the UI-facing application settings.
type AppConfig struct {
	Title          string `mapstructure:"title"`
	Subtitle       string `mapstructure:"subtitle"`
	Port           int    `mapstructure:"port"`
	WelcomeMessage string `mapstructure:"welcome_message"`
}

// LLMConfig holds the completion API settings.
type LLMConfig struct {
	Model                  string  `mapstructure:"model"`
	Temperature            float64 `mapstructure:"temperature"`
	MaxTokens              int     `mapstructure:"max_tokens"`
	ConversationMemorySize int     `mapstructure:"conversation_memory_size"`
	BaseURL                string  `mapstructure:"base_url"`
}

// LoggingConfig holds the interaction log settings.
type LoggingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"`
}

// Config is the immutable set of process settings, loaded once at startup
// and read-only for the process lifetime.
type Config struct {
	App            AppConfig     `mapstructure:"app"`
	LLM            LLMConfig     `mapstructure:"llm"`
	SystemPrompt   string        `mapstructure:"system_prompt"`
	ExampleQueries []string      `mapstructure:"example_queries"`
	Logging        LoggingConfig `mapstructure:"logging"`
	LogLevel       string        `mapstructure:"log_level"`

	// APIKey comes from the environment, never from the file.
	APIKey string `mapstructure:"-"`
}

// Path resolves the settings file location from the environment.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the settings file at path into a Config. It is stateless and
// safe to call repeatedly: each call builds a fresh viper instance and
// re-reads the file. Every field has a default, so a partial file never
// fails, but a missing or unparsable file returns an error wrapping
// ErrConfig.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app.title", "Chat Agent")
	v.SetDefault("app.subtitle", "Your intelligent AI assistant")
	v.SetDefault("app.port", 8000)
	v.SetDefault("app.welcome_message", "Ask me anything.")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.conversation_memory_size", 20)
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("system_prompt", "You are a helpful assistant.")
	v.SetDefault("example_queries", []string{})
	v.SetDefault("logging.enabled", true)
	v.SetDefault("logging.file", "chat_agent_logs.jsonl")
	v.SetDefault("log_level", "INFO")

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: could not read settings file %q: %v", app_errors.ErrConfig, path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: could not parse settings file %q: %v", app_errors.ErrConfig, path, err)
	}

	cfg.APIKey = os.Getenv(EnvAPIKey)

	return &cfg, nil
}
