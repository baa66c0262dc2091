package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned when the AI endpoint credential is not configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is required")

const (
	defaultSystemMessage = "You are Auntie, a warm, evidence-based postpartum support voice. " +
		"Be brief, kind, and practical. No URLs aloud, keep turns short."
	defaultGreeting      = "Hi love, I'm Auntie. I'm listening now."
	defaultSummaryPrompt = "You are Auntie, a kind postpartum support assistant. " +
		"Summarize the text in plain words in at most three short sentences. No diagnosis."
)

// Config contains all runtime settings for the voice relay service.
type Config struct {
	BindAddr              string
	ShutdownTimeout       time.Duration
	CallInactivityTimeout time.Duration
	WriteTimeout          time.Duration
	MetricsNamespace      string

	LogLevel  string
	LogFormat string

	AllowAnyOrigin bool
	PublicBaseURL  string

	OpenAIAPIKey         string
	RealtimeURL          string
	RealtimeModel        string
	RealtimeVoice        string
	SystemMessage        string
	GreetingInstructions string
	RealtimeDialTimeout  time.Duration
	RealtimeDialAttempts int

	DatabaseURL            string
	KnowledgeResultLimit   int
	KnowledgeDefaultRegion string

	GeminiAPIKey        string
	GeminiModel         string
	SummaryInstructions string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:               envOrDefault("APP_BIND_ADDR", ":5050"),
		MetricsNamespace:       envOrDefault("APP_METRICS_NAMESPACE", "auntie"),
		LogLevel:               envOrDefault("APP_LOG_LEVEL", "info"),
		LogFormat:              envOrDefault("APP_LOG_FORMAT", "json"),
		AllowAnyOrigin:         true,
		PublicBaseURL:          stringsTrimSpace("PUBLIC_BASE_URL"),
		OpenAIAPIKey:           stringsTrimSpace("OPENAI_API_KEY"),
		RealtimeURL:            envOrDefault("OPENAI_REALTIME_URL", "wss://api.openai.com/v1/realtime"),
		RealtimeModel:          envOrDefault("OPENAI_REALTIME_MODEL", "gpt-realtime"),
		RealtimeVoice:          envOrDefault("OPENAI_VOICE", "aria"),
		SystemMessage:          envOrDefault("SYSTEM_MESSAGE", defaultSystemMessage),
		GreetingInstructions:   envOrDefault("GREETING_INSTRUCTIONS", defaultGreeting),
		RealtimeDialAttempts:   3,
		DatabaseURL:            stringsTrimSpace("DATABASE_URL"),
		KnowledgeResultLimit:   3,
		KnowledgeDefaultRegion: envOrDefault("KNOWLEDGE_DEFAULT_REGION", "Ontario"),
		GeminiAPIKey:           stringsTrimSpace("GEMINI_API_KEY"),
		GeminiModel:            envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		SummaryInstructions:    envOrDefault("SUMMARY_INSTRUCTIONS", defaultSummaryPrompt),
		ShutdownTimeout:        15 * time.Second,
		CallInactivityTimeout:  2 * time.Minute,
		WriteTimeout:           10 * time.Second,
		RealtimeDialTimeout:    10 * time.Second,
	}
	// Hosting platforms hand out the listen port via PORT.
	if port := stringsTrimSpace("PORT"); port != "" && stringsTrimSpace("APP_BIND_ADDR") == "" {
		cfg.BindAddr = ":" + port
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CallInactivityTimeout, err = durationFromEnv("APP_CALL_INACTIVITY_TIMEOUT", cfg.CallInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.WriteTimeout, err = durationFromEnv("APP_WRITE_TIMEOUT", cfg.WriteTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RealtimeDialTimeout, err = durationFromEnv("OPENAI_DIAL_TIMEOUT", cfg.RealtimeDialTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RealtimeDialAttempts, err = intFromEnv("OPENAI_DIAL_ATTEMPTS", cfg.RealtimeDialAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.KnowledgeResultLimit, err = intFromEnv("KNOWLEDGE_RESULT_LIMIT", cfg.KnowledgeResultLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.OpenAIAPIKey == "" {
		return Config{}, ErrMissingAPIKey
	}
	if cfg.CallInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_CALL_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.WriteTimeout <= 0 {
		return Config{}, fmt.Errorf("APP_WRITE_TIMEOUT must be positive")
	}
	if cfg.RealtimeDialAttempts <= 0 {
		return Config{}, fmt.Errorf("OPENAI_DIAL_ATTEMPTS must be positive")
	}
	if cfg.KnowledgeResultLimit <= 0 {
		return Config{}, fmt.Errorf("KNOWLEDGE_RESULT_LIMIT must be positive")
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("APP_LOG_FORMAT must be json or console")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
