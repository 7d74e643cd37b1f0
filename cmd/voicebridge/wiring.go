package main

import (
	"context"

	"github.com/WhatsDiscuss/voicebridge/internal/config"
	"github.com/WhatsDiscuss/voicebridge/internal/realtime"
	"github.com/WhatsDiscuss/voicebridge/internal/session"
	"github.com/WhatsDiscuss/voicebridge/internal/whatsapp"
)

// realtimeClient adapts the concrete Realtime client to the
// orchestrator's AIClient port.
type realtimeClient struct {
	client *realtime.Client
}

func (r *realtimeClient) Open(ctx context.Context, instructions string) (session.AISession, error) {
	return r.client.Open(ctx, instructions)
}

func whatsappSignaler(cfg *config.Config) session.Signaler {
	return whatsapp.NewClient(cfg.GraphBaseURL, cfg.PhoneNumberID, cfg.Token)
}
