package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/WhatsDiscuss/voicebridge/internal/media"
	"github.com/WhatsDiscuss/voicebridge/internal/realtime"
)

// commitInterval batches caller audio before asking the assistant to
// process it, mirroring the platform's ~100ms input cadence.
const commitInterval = 100 * time.Millisecond

// End conditions surfaced by the two bridge directions.
var (
	errCallerHangup = errors.New("caller hung up")
	errAICompleted  = errors.New("assistant session completed")
)

// runBridge relays audio in both directions until an end condition
// fires: caller hangup, assistant completion or error, deadline
// expiry, or cooperative cancellation. It returns the termination
// reason for normal ends and an error for mid-call faults.
//
// The two directions run concurrently so a stall in one never blocks
// the other.
func (o *Orchestrator) runBridge(ctx context.Context, s *CallSession) (TerminationReason, error) {
	s.mu.RLock()
	ai := s.ai
	adapter := s.adapter
	deadline := s.deadlineAt
	s.mu.RUnlock()

	bridgeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(bridgeCtx)
	g.Go(func() error {
		return o.forwardCallerAudio(gctx, s, ai, adapter)
	})
	g.Go(func() error {
		return o.playAssistantAudio(gctx, s, ai, adapter)
	})

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- g.Wait()
	}()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-timer.C:
		slog.Info("[Bridge] Deadline expired", "call_id", s.CallID)
		cancel()
		<-waitDone
		return ReasonTimeout, nil

	case <-ctx.Done():
		<-waitDone
		return s.stopReasonOr(ReasonShutdown), nil

	case err := <-waitDone:
		switch {
		case errors.Is(err, errCallerHangup):
			return ReasonCallerHangup, nil
		case errors.Is(err, errAICompleted):
			return ReasonAICompleted, nil
		case err != nil:
			return ReasonError, err
		default:
			// Both directions exited without a verdict: the session
			// context was canceled underneath them.
			return s.stopReasonOr(ReasonShutdown), nil
		}
	}
}

// forwardCallerAudio moves caller frames into the assistant session.
// Forwarding is gated until the greeting has been dispatched so the
// assistant always speaks first.
func (o *Orchestrator) forwardCallerAudio(ctx context.Context, s *CallSession, ai AISession, adapter media.Adapter) error {
	select {
	case <-s.greetingSent:
	case <-ctx.Done():
		return nil
	}

	inbound := adapter.InboundAudio()
	lastCommit := time.Now()

	for {
		select {
		case frame, ok := <-inbound:
			if !ok {
				slog.Info("[Bridge] Caller audio ended", "call_id", s.CallID)
				return errCallerHangup
			}
			if err := ai.SendAudio(frame.Payload); err != nil {
				return fmt.Errorf("forward caller audio: %w", err)
			}
			if time.Since(lastCommit) >= commitInterval {
				if err := ai.CommitAudio(); err != nil {
					return fmt.Errorf("commit caller audio: %w", err)
				}
				lastCommit = time.Now()
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// playAssistantAudio consumes assistant events in arrival order and
// plays audio frames to the caller as they arrive.
func (o *Orchestrator) playAssistantAudio(ctx context.Context, s *CallSession, ai AISession, adapter media.Adapter) error {
	events := ai.Events()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return errAICompleted
			}

			switch ev.Type {
			case realtime.EventTypeAudioDelta:
				frame := media.Frame{Payload: ev.Audio, Received: time.Now()}
				if err := adapter.OutboundAudio(frame); err != nil {
					if errors.Is(err, media.ErrAdapterClosed) {
						return nil
					}
					return fmt.Errorf("play assistant audio: %w", err)
				}

			case realtime.EventTypeTranscriptDelta:
				slog.Debug("[Bridge] Transcript fragment", "call_id", s.CallID, "text", ev.Transcript)

			case realtime.EventTypeResponseDone:
				slog.Debug("[Bridge] Assistant turn complete", "call_id", s.CallID)

			case realtime.EventTypeError:
				return fmt.Errorf("assistant session: %w", ev.Err)

			case realtime.EventTypeClosed:
				if ev.Err != nil {
					return fmt.Errorf("assistant session closed: %w", ev.Err)
				}
				return errAICompleted
			}

		case <-ctx.Done():
			return nil
		}
	}
}
