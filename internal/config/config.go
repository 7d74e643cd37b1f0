// Package config loads process configuration from flags and environment.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for values that are safe to run with out of the box.
const (
	DefaultPort           = 8080
	DefaultCallTimeout    = 300 * time.Second
	DefaultGreeting       = "It's time to take your medicine"
	DefaultGraphBaseURL   = "https://graph.facebook.com/v23.0"
	DefaultRealtimeURL    = "wss://api.openai.com/v1/realtime"
	DefaultRealtimeModel  = "gpt-4o-realtime-preview"
	DefaultRealtimeVoice  = "alloy"
	DefaultPhoneNumberID  = "mock_phone_id"
	DefaultShutdownGrace  = 10 * time.Second
)

// Config holds the voicebridge service configuration
type Config struct {
	// HTTP settings
	Port     int
	LogLevel string

	// WhatsApp Cloud API settings
	GraphBaseURL  string
	PhoneNumberID string
	Token         string
	WebhookSecret string

	// OpenAI Realtime settings
	OpenAIAPIKey  string
	RealtimeURL   string
	RealtimeModel string
	RealtimeVoice string

	// Call settings
	CallTimeout   time.Duration
	Greeting      string
	ShutdownGrace time.Duration
}

// Load loads configuration from command line flags and environment variables
func Load() *Config {
	cfg := &Config{
		ShutdownGrace: DefaultShutdownGrace,
	}

	flag.IntVar(&cfg.Port, "port", DefaultPort, "HTTP listening port")
	flag.StringVar(&cfg.LogLevel, "loglevel", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.GraphBaseURL, "graph-url", DefaultGraphBaseURL, "WhatsApp Graph API base URL")
	flag.StringVar(&cfg.PhoneNumberID, "phone-number-id", DefaultPhoneNumberID, "WhatsApp business phone number ID")
	flag.StringVar(&cfg.RealtimeURL, "realtime-url", DefaultRealtimeURL, "OpenAI Realtime websocket URL")
	flag.StringVar(&cfg.RealtimeModel, "realtime-model", DefaultRealtimeModel, "OpenAI Realtime model")
	flag.StringVar(&cfg.RealtimeVoice, "voice", DefaultRealtimeVoice, "OpenAI Realtime voice")
	flag.StringVar(&cfg.Greeting, "greeting", DefaultGreeting, "Greeting the assistant speaks first")

	var timeoutSecs int
	flag.IntVar(&timeoutSecs, "call-timeout", int(DefaultCallTimeout/time.Second), "Maximum call duration in seconds")

	flag.Parse()
	cfg.CallTimeout = time.Duration(timeoutSecs) * time.Second

	applyEnv(cfg)
	return cfg
}

// applyEnv overrides config fields from environment variables.
// Secrets are only ever read from the environment, never from flags.
func applyEnv(cfg *Config) {
	if port := os.Getenv("SERVICE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if base := os.Getenv("WHATSAPP_API_BASE_URL"); base != "" {
		cfg.GraphBaseURL = base
	}
	if id := os.Getenv("WHATSAPP_PHONE_NUMBER_ID"); id != "" {
		cfg.PhoneNumberID = id
	}
	cfg.Token = os.Getenv("WHATSAPP_TOKEN")
	cfg.WebhookSecret = os.Getenv("WHATSAPP_WEBHOOK_SECRET")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if url := os.Getenv("OPENAI_REALTIME_URL"); url != "" {
		cfg.RealtimeURL = url
	}
	if timeout := os.Getenv("CALL_TIMEOUT_SECONDS"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil && secs > 0 {
			cfg.CallTimeout = time.Duration(secs) * time.Second
		}
	}
	if greeting := os.Getenv("GREETING_TEXT"); greeting != "" {
		cfg.Greeting = greeting
	}
}

// Validate checks that required credentials are present.
func (c *Config) Validate() error {
	var missing []string

	if c.Token == "" {
		missing = append(missing, "WHATSAPP_TOKEN")
	}
	if c.WebhookSecret == "" {
		missing = append(missing, "WHATSAPP_WEBHOOK_SECRET")
	}
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
