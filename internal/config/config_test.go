package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("GEMINI_MODEL_ID", "")
	t.Setenv("AIRTABLE_TABLE", "")
	cfg := Load()
	if cfg.Port != "3000" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.GeminiModelID != "gemini-2.5-flash" {
		t.Fatalf("expected default model, got %s", cfg.GeminiModelID)
	}
	if cfg.GeminiMaxAttempts != 10 {
		t.Fatalf("expected 10 gemini attempts, got %d", cfg.GeminiMaxAttempts)
	}
	if cfg.GeminiRetryBaseDelay != 10*time.Second {
		t.Fatalf("expected 10s gemini base delay, got %s", cfg.GeminiRetryBaseDelay)
	}
	if cfg.TwilioRetryBaseDelay != time.Second {
		t.Fatalf("expected 1s twilio base delay, got %s", cfg.TwilioRetryBaseDelay)
	}
	if cfg.AirtableTable != "Citas" {
		t.Fatalf("expected default table, got %s", cfg.AirtableTable)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected empty redis addr by default, got %s", cfg.RedisAddr)
	}
	if cfg.RemindersEnabled {
		t.Fatal("expected reminders disabled by default")
	}
	if cfg.ReminderCronSpec != "0 9 * * *" {
		t.Fatalf("expected default reminder cron, got %s", cfg.ReminderCronSpec)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("GEMINI_ENFORCE_SCHEMA", "true")
	t.Setenv("GEMINI_RETRY_BASE_DELAY", "250ms")
	t.Setenv("GEMINI_TEMPERATURE", "0.2")
	t.Setenv("TWILIO_RETRY_MAX_ATTEMPTS", "3")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	cfg := Load()
	if cfg.Port != "8081" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.GeminiEnforceSchema {
		t.Fatal("expected schema enforcement enabled")
	}
	if cfg.GeminiRetryBaseDelay != 250*time.Millisecond {
		t.Fatalf("expected 250ms base delay, got %s", cfg.GeminiRetryBaseDelay)
	}
	if cfg.GeminiTemperature != 0.2 {
		t.Fatalf("expected temperature override, got %v", cfg.GeminiTemperature)
	}
	if cfg.TwilioMaxAttempts != 3 {
		t.Fatalf("expected 3 twilio attempts, got %d", cfg.TwilioMaxAttempts)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("expected redis addr override, got %s", cfg.RedisAddr)
	}
}
