package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// StreamEvents receives incremental notifications during a streamed
// chat call. Any callback may be nil. OnToolCall fires when the model
// requests a tool; OnToolDone fires once the backend has run it and
// the stream moves on. Tool execution itself happens backend-side.
type StreamEvents struct {
	OnPartial  func(content string)
	OnToolCall func(name string)
	OnToolDone func(name string)
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// ChatStream sends a chat history and yields partial content via
	// the stream callbacks before returning the full response
	ChatStream(ctx context.Context, history []Message, stream StreamEvents, options ...Option) (string, error)
}
