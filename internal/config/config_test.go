package config

import (
	"strings"
	"testing"
	"time"
)

func defaultsConfig() *Config {
	return &Config{
		Port:          DefaultPort,
		LogLevel:      "info",
		GraphBaseURL:  DefaultGraphBaseURL,
		PhoneNumberID: DefaultPhoneNumberID,
		RealtimeURL:   DefaultRealtimeURL,
		RealtimeModel: DefaultRealtimeModel,
		RealtimeVoice: DefaultRealtimeVoice,
		CallTimeout:   DefaultCallTimeout,
		Greeting:      DefaultGreeting,
		ShutdownGrace: DefaultShutdownGrace,
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SERVICE_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WHATSAPP_API_BASE_URL", "http://localhost:4000/v23.0")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "phone-99")
	t.Setenv("WHATSAPP_TOKEN", "tok")
	t.Setenv("WHATSAPP_WEBHOOK_SECRET", "hook")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_REALTIME_URL", "ws://localhost:5000/realtime")
	t.Setenv("CALL_TIMEOUT_SECONDS", "120")
	t.Setenv("GREETING_TEXT", "hello there")

	cfg := defaultsConfig()
	applyEnv(cfg)

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.GraphBaseURL != "http://localhost:4000/v23.0" {
		t.Errorf("GraphBaseURL = %q", cfg.GraphBaseURL)
	}
	if cfg.PhoneNumberID != "phone-99" {
		t.Errorf("PhoneNumberID = %q, want phone-99", cfg.PhoneNumberID)
	}
	if cfg.Token != "tok" || cfg.WebhookSecret != "hook" || cfg.OpenAIAPIKey != "sk-test" {
		t.Error("secrets were not read from the environment")
	}
	if cfg.RealtimeURL != "ws://localhost:5000/realtime" {
		t.Errorf("RealtimeURL = %q", cfg.RealtimeURL)
	}
	if cfg.CallTimeout != 120*time.Second {
		t.Errorf("CallTimeout = %v, want 120s", cfg.CallTimeout)
	}
	if cfg.Greeting != "hello there" {
		t.Errorf("Greeting = %q, want hello there", cfg.Greeting)
	}
}

func TestApplyEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("SERVICE_PORT", "not-a-port")
	t.Setenv("CALL_TIMEOUT_SECONDS", "-5")
	t.Setenv("WHATSAPP_TOKEN", "tok")
	t.Setenv("WHATSAPP_WEBHOOK_SECRET", "hook")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := defaultsConfig()
	applyEnv(cfg)

	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want default %d", cfg.Port, DefaultPort)
	}
	if cfg.CallTimeout != DefaultCallTimeout {
		t.Errorf("CallTimeout = %v, want default %v", cfg.CallTimeout, DefaultCallTimeout)
	}
}

func TestValidateReportsAllMissingSecrets(t *testing.T) {
	cfg := defaultsConfig()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() with no secrets succeeded, want error")
	}
	for _, name := range []string{"WHATSAPP_TOKEN", "WHATSAPP_WEBHOOK_SECRET", "OPENAI_API_KEY"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Validate() error %q missing %s", err, name)
		}
	}
}

func TestValidatePassesWithSecrets(t *testing.T) {
	cfg := defaultsConfig()
	cfg.Token = "tok"
	cfg.WebhookSecret = "hook"
	cfg.OpenAIAPIKey = "sk-test"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
