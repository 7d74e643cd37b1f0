package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/WhatsDiscuss/voicebridge/internal/banner"
	"github.com/WhatsDiscuss/voicebridge/internal/config"
	"github.com/WhatsDiscuss/voicebridge/internal/knowledge"
	"github.com/WhatsDiscuss/voicebridge/internal/logger"
	"github.com/WhatsDiscuss/voicebridge/internal/media"
	"github.com/WhatsDiscuss/voicebridge/internal/metrics"
	"github.com/WhatsDiscuss/voicebridge/internal/realtime"
	"github.com/WhatsDiscuss/voicebridge/internal/session"
	"github.com/WhatsDiscuss/voicebridge/internal/webhook"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.InitLogger(os.Stdout)
	logger.SetLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	run(cfg)
}

func run(cfg *config.Config) {
	store := knowledge.NewStore()
	m := metrics.New()

	orch := session.NewOrchestrator(session.Config{
		Registry: session.NewRegistry(),
		Media: func(callID string) media.Adapter {
			return media.NewMockAdapter(callID)
		},
		AI: &realtimeClient{client: realtime.NewClient(realtime.Config{
			URL:    cfg.RealtimeURL,
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.RealtimeModel,
			Voice:  cfg.RealtimeVoice,
		})},
		Signaler:    whatsappSignaler(cfg),
		Knowledge:   store,
		CallTimeout: cfg.CallTimeout,
		Greeting:    cfg.Greeting,
		Metrics:     m,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := webhook.NewServer(addr, cfg.WebhookSecret, orch, m)

	banner.Print("VoiceBridge Call Orchestrator", []banner.ConfigLine{
		{Label: "Port", Value: fmt.Sprintf("%d", cfg.Port)},
		{Label: "Graph API", Value: cfg.GraphBaseURL},
		{Label: "Realtime model", Value: cfg.RealtimeModel},
		{Label: "Voice", Value: cfg.RealtimeVoice},
		{Label: "Call timeout", Value: cfg.CallTimeout.String()},
		{Label: "Knowledge", Value: store.Summary()},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := server.Start(ctx); err != nil {
			slog.Error("Server error", "error", err)
		}
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("Received signal, shutting down", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Webhook server shutdown failed", "error", err)
	}
	if err := orch.Drain(shutdownCtx); err != nil {
		slog.Warn("Session drain incomplete", "error", err)
	}
	cancel()
}
