package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chat-relay/internal/model"
)

// ChatRequest carries one turn's input to the completion API. History is
// expected to be the already-trimmed recent window; clamping the
// temperature is the caller's responsibility, not this package's.
type ChatRequest struct {
	UserMessage  string
	History      []model.Message
	SystemPrompt string
	Temperature  float64
}

// CompletionProvider streams one chat completion as a sequence of typed
// events. Implementations must preserve token arrival order, emit at most
// one usage event, and finish with exactly one terminal event (done or
// error). All failures are converted into an error event on the channel,
// never returned to the caller; the channel is always closed.
type CompletionProvider interface {
	ChatStream(ctx context.Context, req *ChatRequest, ch chan<- model.StreamEvent)
}

type openAIProvider struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
}

// NewOpenAIProvider creates a streaming client for an OpenAI-compatible
// chat completions endpoint. The client is built once at startup and shared;
// it deliberately has no request timeout, streaming responses are bounded
// only by the request context.
func NewOpenAIProvider(baseURL, apiKey, modelName string, maxTokens int) CompletionProvider {
	return &openAIProvider{
		client:    &http.Client{},
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		model:     modelName,
		maxTokens: maxTokens,
	}
}

// Wire types for the chat completions protocol.
type chatCompletionRequest struct {
	Model               string          `json:"model"`
	Messages            []model.Message `json:"messages"`
	Temperature         float64         `json:"temperature"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	Stream              bool            `json:"stream"`
	StreamOptions       *streamOptions  `json:"stream_options,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

const doneSentinel = "[DONE]"

func (p *openAIProvider) ChatStream(ctx context.Context, req *ChatRequest, ch chan<- model.StreamEvent) {
	defer close(ch)

	messages := make([]model.Message, 0, len(req.History)+2)
	messages = append(messages, model.Message{Role: model.RoleSystem, Content: req.SystemPrompt})
	messages = append(messages, req.History...)
	messages = append(messages, model.Message{Role: model.RoleUser, Content: req.UserMessage})

	body, err := json.Marshal(&chatCompletionRequest{
		Model:               p.model,
		Messages:            messages,
		Temperature:         req.Temperature,
		MaxCompletionTokens: p.maxTokens,
		Stream:              true,
		StreamOptions:       &streamOptions{IncludeUsage: true},
	})
	if err != nil {
		p.sendError(ctx, ch, fmt.Sprintf("could not marshal request: %v", err))
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		p.sendError(ctx, ch, fmt.Sprintf("could not create request: %v", err))
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.sendError(ctx, ch, fmt.Sprintf("completion request failed: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		p.sendError(ctx, ch, fmt.Sprintf("completion API returned status %d: %s", resp.StatusCode, string(bodyBytes)))
		return
	}

	var usage *model.Usage

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		if payload == doneSentinel {
			break
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			p.sendError(ctx, ch, fmt.Sprintf("could not decode stream chunk: %v", err))
			return
		}

		// Only the final chunk carries usage totals.
		if chunk.Usage != nil {
			usage = &model.Usage{
				InputTokens:  chunk.Usage.PromptTokens,
				OutputTokens: chunk.Usage.CompletionTokens,
			}
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			select {
			case ch <- model.TokenEvent(chunk.Choices[0].Delta.Content):
			case <-ctx.Done():
				return
			}
		}
	}
	if err := scanner.Err(); err != nil {
		p.sendError(ctx, ch, fmt.Sprintf("stream interrupted: %v", err))
		return
	}

	if usage != nil {
		select {
		case ch <- model.UsageEvent(*usage):
		case <-ctx.Done():
			return
		}
	}
	select {
	case ch <- model.DoneEvent():
	case <-ctx.Done():
	}
}

// sendError emits the single terminal error event. No done event follows
// and nothing is retried.
func (p *openAIProvider) sendError(ctx context.Context, ch chan<- model.StreamEvent, message string) {
	select {
	case ch <- model.ErrorEvent("LLM error: " + message):
	case <-ctx.Done():
	}
}
