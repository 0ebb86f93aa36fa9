package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Gemini (language-model backend)
	GeminiAPIKey         string
	GeminiModelID        string
	GeminiEnforceSchema  bool
	GeminiMaxAttempts    int
	GeminiRetryBaseDelay time.Duration
	GeminiTemperature    float64
	GeminiMaxTokens      int

	// Twilio (WhatsApp messaging gateway)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	// TwilioValidateSignature turns on X-Twilio-Signature checks against the
	// auth token. Off by default so local tunnels keep working.
	TwilioValidateSignature bool
	TwilioMaxAttempts       int
	TwilioRetryBaseDelay    time.Duration

	// Airtable (appointment record backend)
	AirtableAPIKey string
	AirtableBaseID string
	AirtableTable  string

	// Calendly (scheduling backend)
	CalendlyAccessToken  string
	CalendlyEventTypeURI string
	CalendlyUserURI      string

	// Optional Redis-backed conversation history. Empty addr keeps the
	// in-memory store.
	RedisAddr     string
	RedisPassword string

	// Reminder job
	RemindersEnabled bool
	ReminderCronSpec string

	DispatchBuffer int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "3000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:        getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		GeminiEnforceSchema:  getEnvAsBool("GEMINI_ENFORCE_SCHEMA", false),
		GeminiMaxAttempts:    getEnvAsInt("GEMINI_RETRY_MAX_ATTEMPTS", 10),
		GeminiRetryBaseDelay: getEnvAsDuration("GEMINI_RETRY_BASE_DELAY", 10*time.Second),
		GeminiTemperature:    getEnvAsFloat("GEMINI_TEMPERATURE", 0.7),
		GeminiMaxTokens:      getEnvAsInt("GEMINI_MAX_OUTPUT_TOKENS", 400),

		TwilioAccountSID:        getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:         getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:        getEnv("TWILIO_PHONE_NUMBER", ""),
		TwilioValidateSignature: getEnvAsBool("TWILIO_VALIDATE_SIGNATURE", false),
		TwilioMaxAttempts:       getEnvAsInt("TWILIO_RETRY_MAX_ATTEMPTS", 10),
		TwilioRetryBaseDelay:    getEnvAsDuration("TWILIO_RETRY_BASE_DELAY", time.Second),

		AirtableAPIKey: getEnv("AIRTABLE_API_KEY", ""),
		AirtableBaseID: getEnv("AIRTABLE_BASE_ID", ""),
		AirtableTable:  getEnv("AIRTABLE_TABLE", "Citas"),

		CalendlyAccessToken:  getEnv("CALENDLY_PERSONAL_ACCESS_TOKEN", ""),
		CalendlyEventTypeURI: getEnv("CALENDLY_EVENT_TYPE_URI", ""),
		CalendlyUserURI:      getEnv("CALENDLY_USER_URI", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		RemindersEnabled: getEnvAsBool("REMINDERS_ENABLED", false),
		ReminderCronSpec: getEnv("REMINDER_CRON", "0 9 * * *"),

		DispatchBuffer: getEnvAsInt("DISPATCH_BUFFER", 64),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
