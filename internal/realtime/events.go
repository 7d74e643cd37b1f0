// Package realtime implements the OpenAI Realtime API client used to
// hold the assistant side of a call.
package realtime

// Server event types the bridge loop reacts to. Anything else is
// logged and skipped.
const (
	EventTypeSessionCreated  = "session.created"
	EventTypeSessionUpdated  = "session.updated"
	EventTypeAudioDelta      = "response.audio.delta"
	EventTypeAudioDone       = "response.audio.done"
	EventTypeTranscriptDelta = "response.audio_transcript.delta"
	EventTypeResponseDone    = "response.done"
	EventTypeError           = "error"

	// EventTypeClosed is synthesized locally when the websocket ends.
	EventTypeClosed = "session.closed"
)

// Event is one inbound item from the assistant session, delivered to
// the consumer in arrival order.
type Event struct {
	Type       string
	Audio      []byte // decoded audio for EventTypeAudioDelta
	Transcript string // fragment for EventTypeTranscriptDelta
	Err        error  // set for EventTypeError and abnormal EventTypeClosed
}

// --- wire payloads ---

type sessionUpdateEvent struct {
	EventID string        `json:"event_id"`
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type sessionConfig struct {
	Modalities         []string             `json:"modalities"`
	Instructions       string               `json:"instructions"`
	Voice              string               `json:"voice"`
	InputAudioFormat   string               `json:"input_audio_format"`
	OutputAudioFormat  string               `json:"output_audio_format"`
	InputTranscription *transcriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection      *turnDetection       `json:"turn_detection,omitempty"`
}

type transcriptionConfig struct {
	Model string `json:"model"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

type responseCreateEvent struct {
	EventID  string         `json:"event_id"`
	Type     string         `json:"type"`
	Response responseConfig `json:"response"`
}

type responseConfig struct {
	Modalities   []string `json:"modalities"`
	Instructions string   `json:"instructions,omitempty"`
}

type inputAudioAppendEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Audio   string `json:"audio"` // base64
}

type inputAudioCommitEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
}

// serverEvent is the superset of inbound wire fields we care about.
type serverEvent struct {
	Type  string `json:"type"`
	Delta string `json:"delta,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
