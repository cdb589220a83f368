package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Chat     ChatConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider    string // "ollama" or "huggingface"
	LLMModel       string // e.g. "llama3.2:1b", "qwen3-vl:8b"
	OllamaBaseURL  string
	HuggingFaceKey string
	RequestTimeout time.Duration
}

type ChatConfig struct {
	TurnTopicName    string // queue topic for async chat turns
	MaxMessageLength int
	TitleMaxLength   int
	SystemPrompt     string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:       getEnv("LLM_MODEL", "llama3.2:1b"),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceKey: getEnv("HUGGINGFACE_API_KEY", ""),
			RequestTimeout: getEnvAsDuration("LLM_REQUEST_TIMEOUT", 120*time.Second),
		},
		Chat: ChatConfig{
			TurnTopicName:    getEnv("CHAT_TURN_TOPIC_NAME", "PROCESS_CHAT_TURN"),
			MaxMessageLength: getEnvAsInt("CHAT_MAX_MESSAGE_LENGTH", 5000),
			TitleMaxLength:   getEnvAsInt("CHAT_TITLE_MAX_LENGTH", 50),
			SystemPrompt:     getEnv("CHAT_SYSTEM_PROMPT", ""),
		},
	}
}

// IsProduction reports whether raw error detail must be suppressed
// from client-facing payloads.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
