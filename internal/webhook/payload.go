// Package webhook receives WhatsApp Business events and dispatches
// call-initiated ones to the orchestrator. Everything else is
// acknowledged and never reaches call handling.
package webhook

import (
	"encoding/json"

	"github.com/WhatsDiscuss/voicebridge/internal/session"
)

// Event kinds produced by ParsePayload.
const (
	KindCallInitiated = "call.initiated"
	KindMessage       = "message"
	KindStatus        = "status"
	KindOther         = "other"
	KindUnknown       = "unknown"
)

// Payload is the WhatsApp Business webhook envelope.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one business account entry in the envelope.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one field change notification.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value carries the per-change payload. Call fields are flattened the
// way the calling webhook delivers them.
type Value struct {
	CallID        string          `json:"call_id,omitempty"`
	SDP           string          `json:"sdp,omitempty"`
	Event         string          `json:"event,omitempty"`
	PhoneNumberID string          `json:"phone_number_id,omitempty"`
	From          string          `json:"from,omitempty"`
	Timestamp     string          `json:"timestamp,omitempty"`
	Messages      json.RawMessage `json:"messages,omitempty"`
	Statuses      json.RawMessage `json:"statuses,omitempty"`
}

// ParsePayload classifies the payload and extracts the call-initiated
// event when present. The returned event is non-nil only for
// KindCallInitiated.
func ParsePayload(p *Payload) (string, *session.InitiatedEvent) {
	if p.Object != "whatsapp_business_account" {
		return KindUnknown, nil
	}

	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			v := change.Value

			if v.CallID != "" && v.SDP != "" {
				return KindCallInitiated, &session.InitiatedEvent{
					CallID: v.CallID,
					Offer:  v.SDP,
				}
			}
			if len(v.Messages) > 0 {
				return KindMessage, nil
			}
			if len(v.Statuses) > 0 {
				return KindStatus, nil
			}
		}
	}
	return KindOther, nil
}
