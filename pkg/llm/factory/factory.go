package factory

import (
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/llm/huggingface"
	"ai-chat-be/pkg/llm/ollama"
	"fmt"
	"time"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string, timeout time.Duration) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName, timeout), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(apiKey, "", modelName, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
