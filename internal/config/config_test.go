package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadRequiresOpenAIKey(t *testing.T) {
	setCoreEnvEmpty(t)

	_, err := Load()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Load() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":5050" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":5050")
	}
	if cfg.RealtimeModel != "gpt-realtime" {
		t.Fatalf("RealtimeModel = %q, want %q", cfg.RealtimeModel, "gpt-realtime")
	}
	if cfg.RealtimeVoice != "aria" {
		t.Fatalf("RealtimeVoice = %q, want %q", cfg.RealtimeVoice, "aria")
	}
	if cfg.CallInactivityTimeout != 2*time.Minute {
		t.Fatalf("CallInactivityTimeout = %v, want 2m", cfg.CallInactivityTimeout)
	}
	if cfg.KnowledgeDefaultRegion != "Ontario" {
		t.Fatalf("KnowledgeDefaultRegion = %q, want Ontario", cfg.KnowledgeDefaultRegion)
	}
	if cfg.GreetingInstructions == "" || cfg.SystemMessage == "" {
		t.Fatalf("persona defaults should not be empty: %+v", cfg)
	}
}

func TestLoadHonoursPort(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "10000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":10000" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":10000")
	}

	t.Setenv("APP_BIND_ADDR", "127.0.0.1:9000")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != "127.0.0.1:9000" {
		t.Fatalf("BindAddr = %q, want explicit APP_BIND_ADDR", cfg.BindAddr)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		key   string
		value string
	}{
		{"APP_CALL_INACTIVITY_TIMEOUT", "1s"},
		{"APP_CALL_INACTIVITY_TIMEOUT", "soon"},
		{"APP_WRITE_TIMEOUT", "0s"},
		{"OPENAI_DIAL_ATTEMPTS", "0"},
		{"KNOWLEDGE_RESULT_LIMIT", "many"},
		{"APP_ALLOW_ANY_ORIGIN", "maybe"},
		{"APP_LOG_FORMAT", "xml"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv("OPENAI_API_KEY", "sk-test")
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() error = nil, want error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT",
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_CALL_INACTIVITY_TIMEOUT",
		"APP_WRITE_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_LOG_LEVEL",
		"APP_LOG_FORMAT",
		"APP_ALLOW_ANY_ORIGIN",
		"PUBLIC_BASE_URL",
		"OPENAI_API_KEY",
		"OPENAI_REALTIME_URL",
		"OPENAI_REALTIME_MODEL",
		"OPENAI_VOICE",
		"OPENAI_DIAL_TIMEOUT",
		"OPENAI_DIAL_ATTEMPTS",
		"SYSTEM_MESSAGE",
		"GREETING_INSTRUCTIONS",
		"DATABASE_URL",
		"KNOWLEDGE_RESULT_LIMIT",
		"KNOWLEDGE_DEFAULT_REGION",
		"GEMINI_API_KEY",
		"GEMINI_MODEL",
		"SUMMARY_INSTRUCTIONS",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
