package constant

// Message roles stored with each conversation message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// DefaultSystemPrompt is the instruction set sent ahead of every
// conversation unless overridden via configuration.
const DefaultSystemPrompt = "You are a helpful and friendly AI assistant. You help users with their questions and provide clear, accurate, and concise responses. Be conversational, empathetic, and professional in your interactions."

// Status strings broadcast in processing events.
const (
	StatusThinking  = "AI is thinking..."
	StatusStreaming = "Streaming response..."
)

// User-safe failure messages. Raw diagnostics stay in the logs.
const (
	ErrMsgBackendUnavailable = "Failed to connect to AI service. Please ensure Ollama is running."
	ErrMsgGeneration         = "An error occurred while generating the response."
	ErrMsgUserNotFound       = "User not found"
	ErrMsgConversationDenied = "Conversation not found"
)

// PendingAckMessage is returned to the client immediately after a
// turn is enqueued.
const PendingAckMessage = "Your message is being processed..."
