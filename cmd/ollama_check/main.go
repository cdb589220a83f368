package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"ai-chat-be/internal/config"
	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/llm/ollama"

	"github.com/fatih/color"
)

// Connectivity check for the Ollama backend: verifies the server is
// reachable, lists installed models, and runs one test generation.
func main() {
	cfg := config.Load()

	color.Cyan("🚀 Checking Ollama at %s\n", cfg.Ai.OllamaBaseURL)

	// 1. Server reachable?
	color.Yellow("\n[1] Server status")
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(cfg.Ai.OllamaBaseURL + "/api/tags")
	if err != nil {
		color.Red("Failed: %v", err)
		color.Red("Ollama does not appear to be running. Start it with `ollama serve`.")
		os.Exit(1)
	}
	defer resp.Body.Close()
	color.Green("Status: %s", resp.Status)

	// 2. Installed models
	color.Yellow("\n[2] Installed models")
	body, _ := io.ReadAll(resp.Body)
	var tags struct {
		Models []struct {
			Name string `json:"name"`
			Size int64  `json:"size"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &tags); err != nil {
		color.Red("Failed to parse model list: %v", err)
		os.Exit(1)
	}
	if len(tags.Models) == 0 {
		color.Red("No models installed. Pull one with `ollama pull %s`.", cfg.Ai.LLMModel)
		os.Exit(1)
	}
	configured := false
	for _, m := range tags.Models {
		marker := " "
		if m.Name == cfg.Ai.LLMModel {
			marker = "*"
			configured = true
		}
		fmt.Printf("  %s %s (%.1f GB)\n", marker, m.Name, float64(m.Size)/(1<<30))
	}
	if !configured {
		color.Yellow("Configured model %q is not installed.", cfg.Ai.LLMModel)
	}

	// 3. Test generation
	color.Yellow("\n[3] Test generation with %s", cfg.Ai.LLMModel)
	provider := ollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.LLMModel, cfg.Ai.RequestTimeout)

	start := time.Now()
	answer, err := provider.Chat(context.Background(), []llm.Message{
		{Role: "user", Content: "Reply with exactly one word: pong"},
	}, llm.WithMaxTokens(10))
	if err != nil {
		color.Red("Generation failed: %v", err)
		os.Exit(1)
	}
	color.Green("Response in %s: %s", time.Since(start).Round(time.Millisecond), answer)

	color.Cyan("\n✅ Ollama backend is ready")
}
