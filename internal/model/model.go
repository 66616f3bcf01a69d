package model

// Message roles accepted by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged entry in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Stream event kinds. A well-formed stream matches `token* usage? (done|error)`
// with exactly one terminal event.
const (
	EventToken = "token"
	EventUsage = "usage"
	EventDone  = "done"
	EventError = "error"
)

// Usage carries the token accounting reported by the completion API.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// StreamEvent is a single unit of a streamed chat response. Data holds the
// text fragment for token events, a Usage for usage events, a message string
// for error events, and is omitted for done.
type StreamEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func TokenEvent(text string) StreamEvent {
	return StreamEvent{Type: EventToken, Data: text}
}

func UsageEvent(u Usage) StreamEvent {
	return StreamEvent{Type: EventUsage, Data: u}
}

func DoneEvent() StreamEvent {
	return StreamEvent{Type: EventDone}
}

func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: EventError, Data: message}
}
