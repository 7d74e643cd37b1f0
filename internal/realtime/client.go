package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout   = 5 * time.Second
	eventQueueSize = 256
)

// ErrSessionClosed indicates a send on a closed session.
var ErrSessionClosed = errors.New("realtime session closed")

// Config holds the connection settings for the Realtime API.
type Config struct {
	URL    string // websocket base, e.g. wss://api.openai.com/v1/realtime
	APIKey string
	Model  string
	Voice  string
}

// Client opens Realtime sessions.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
}

// NewClient creates a Realtime API client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
	}
}

// Open establishes a duplex session and seeds it with the given
// instructions. Inbound events arrive on Session.Events in order.
func (c *Client) Open(ctx context.Context, instructions string) (*Session, error) {
	wsURL, err := c.buildURL()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, _, err := c.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial realtime api: %w", err)
	}

	s := &Session{
		conn:   conn,
		events: make(chan Event, eventQueueSize),
		closed: make(chan struct{}),
	}

	update := sessionUpdateEvent{
		EventID: uuid.NewString(),
		Type:    "session.update",
		Session: sessionConfig{
			Modalities:        []string{"text", "audio"},
			Instructions:      instructions,
			Voice:             c.cfg.Voice,
			InputAudioFormat:  "pcm16",
			OutputAudioFormat: "pcm16",
			InputTranscription: &transcriptionConfig{Model: "whisper-1"},
			TurnDetection: &turnDetection{
				Type:              "server_vad",
				Threshold:         0.5,
				PrefixPaddingMs:   300,
				SilenceDurationMs: 200,
			},
		},
	}
	if err := s.writeJSON(update); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("seed session: %w", err)
	}

	go s.readLoop()

	slog.Debug("[Realtime] Session opened", "model", c.cfg.Model, "voice", c.cfg.Voice)
	return s, nil
}

func (c *Client) buildURL() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("realtime url: %w", err)
	}
	if c.cfg.Model != "" {
		q := u.Query()
		q.Set("model", c.cfg.Model)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Session is one duplex conversation with the assistant.
//
// Outbound sends are serialized under a write mutex, so turns are
// delivered in submission order. Inbound events are published on a
// single channel in arrival order.
type Session struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	events    chan Event
	closed    chan struct{}
	closeOnce sync.Once
}

// Events returns the ordered inbound event stream. The channel is
// closed when the session ends.
func (s *Session) Events() <-chan Event {
	return s.events
}

// SendGreeting asks the assistant to speak the given utterance as its
// next (first) audio turn.
func (s *Session) SendGreeting(text string) error {
	return s.writeJSON(responseCreateEvent{
		EventID: uuid.NewString(),
		Type:    "response.create",
		Response: responseConfig{
			Modalities:   []string{"audio"},
			Instructions: fmt.Sprintf("Say exactly: '%s'", text),
		},
	})
}

// SendAudio appends caller audio to the input buffer.
func (s *Session) SendAudio(payload []byte) error {
	return s.writeJSON(inputAudioAppendEvent{
		EventID: uuid.NewString(),
		Type:    "input_audio_buffer.append",
		Audio:   base64.StdEncoding.EncodeToString(payload),
	})
}

// CommitAudio flushes the buffered caller audio for processing.
func (s *Session) CommitAudio() error {
	return s.writeJSON(inputAudioCommitEvent{
		EventID: uuid.NewString(),
		Type:    "input_audio_buffer.commit",
	})
}

// Close shuts the session down. Idempotent and safe from the teardown
// path even after a session error.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		deadline := time.Now().Add(writeTimeout)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = s.conn.Close()
	})
	return nil
}

func (s *Session) writeJSON(v any) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(v)
}

// readLoop decodes server events onto the events channel until the
// connection ends, then publishes a final closed event.
func (s *Session) readLoop() {
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closed:
				s.publish(Event{Type: EventTypeClosed})
			default:
				s.publish(Event{Type: EventTypeClosed, Err: err})
			}
			return
		}

		var ev serverEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			slog.Warn("[Realtime] Dropping undecodable event", "error", err)
			continue
		}

		switch ev.Type {
		case EventTypeAudioDelta:
			audio, err := base64.StdEncoding.DecodeString(ev.Delta)
			if err != nil {
				slog.Warn("[Realtime] Dropping audio delta with bad base64", "error", err)
				continue
			}
			s.publish(Event{Type: EventTypeAudioDelta, Audio: audio})

		case EventTypeTranscriptDelta:
			s.publish(Event{Type: EventTypeTranscriptDelta, Transcript: ev.Delta})

		case EventTypeError:
			msg := "unknown error"
			if ev.Error != nil {
				msg = ev.Error.Message
			}
			s.publish(Event{Type: EventTypeError, Err: fmt.Errorf("realtime api: %s", msg)})

		case EventTypeSessionCreated, EventTypeSessionUpdated,
			EventTypeAudioDone, EventTypeResponseDone:
			s.publish(Event{Type: ev.Type})

		default:
			slog.Debug("[Realtime] Ignoring event", "type", ev.Type)
		}
	}
}

// publish delivers an event, dropping it only if the session was
// closed and nobody is draining the queue.
func (s *Session) publish(ev Event) {
	select {
	case s.events <- ev:
	case <-s.closed:
		select {
		case s.events <- ev:
		default:
		}
	}
}
