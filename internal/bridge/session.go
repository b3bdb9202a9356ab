// Package bridge implements the duplex audio bridge between a telephony
// media stream and a realtime AI voice session.
//
// A [Session] owns exactly one call. It is driven synchronously by the
// telephony WebSocket read loop via [Session.HandleMessage] (the inbound
// pump) and runs one background goroutine draining the AI peer's event
// stream (the outbound pump). Both pumps share the telephony connection
// through a single mutex-guarded writer so media frames never interleave.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wvoelker/larynx/internal/observe"
	"github.com/wvoelker/larynx/internal/twilio"
	"github.com/wvoelker/larynx/pkg/audio"
	"github.com/wvoelker/larynx/pkg/provider/s2s"
)

// ErrSessionEnded signals that the telephony peer requested a normal end of
// the call (a stop message). The read loop should stop delivering messages
// and tear the session down; this is not a failure.
var ErrSessionEnded = errors.New("bridge: session ended")

// State is the lifecycle state of a [Session].
type State int32

const (
	// StateAwaitingStart is the initial state: the telephony WebSocket is
	// connected but the stream-start message has not arrived yet.
	StateAwaitingStart State = iota

	// StateActive means the stream has started and the AI session is live.
	StateActive

	// StateClosing means teardown has begun.
	StateClosing

	// StateClosed is terminal.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateAwaitingStart:
		return "awaiting_start"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// TelephonyWriter sends one complete text (JSON) message to the telephony
// peer. Implementations must tolerate concurrent state inspection but are
// never called concurrently: the session serializes all writes.
type TelephonyWriter interface {
	WriteText(ctx context.Context, data []byte) error
}

// Config configures a [Session].
type Config struct {
	// Provider establishes the AI-peer session when the stream starts.
	Provider s2s.Provider

	// ProviderName labels logs and metrics ("gemini-live", "openai-realtime").
	ProviderName string

	// Writer is the telephony send path.
	Writer TelephonyWriter

	// Session carries voice, instructions, and optional rate overrides for
	// the AI peer. Zero rates fall back to the provider's capabilities.
	Session s2s.SessionConfig

	// TelephonyRate is the telephony leg's sample rate. Default 8000.
	TelephonyRate int

	// FrameBytes is the inbound frame-buffer threshold. Default 9600.
	FrameBytes int

	// LogEvery controls outbound chunk progress logging. Default 20.
	LogEvery int

	// Metrics receives bridge instruments. Default [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Abort, when set, is invoked once if the AI leg fails or ends while the
	// call is active. The server uses it to cancel the blocking telephony
	// read so teardown can proceed.
	Abort func()
}

// Session bridges one telephony call to one AI-peer session.
type Session struct {
	cfg Config
	met *observe.Metrics

	mu        sync.Mutex
	state     State
	streamSID string
	caller    string
	ai        s2s.SessionHandle
	inState   audio.ResampleState
	frames    *audio.FrameBuffer
	inputRate int
	started   time.Time

	// Outbound pump ownership. outState and chunkCount are touched only by
	// the pump goroutine. streamSID is read under mu.
	outState   audio.ResampleState
	outputRate int
	pumpCancel context.CancelFunc
	pumpDone   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	abortOnce sync.Once
}

// NewSession creates a session in [StateAwaitingStart]. The AI peer is not
// contacted until the stream-start message arrives.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Provider == nil {
		return nil, errors.New("bridge: config: Provider is required")
	}
	if cfg.Writer == nil {
		return nil, errors.New("bridge: config: Writer is required")
	}
	if cfg.TelephonyRate <= 0 {
		cfg.TelephonyRate = 8000
	}
	if cfg.FrameBytes <= 0 {
		cfg.FrameBytes = audio.DefaultFrameBytes
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 20
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Session{
		cfg:    cfg,
		met:    cfg.Metrics,
		state:  StateAwaitingStart,
		frames: audio.NewFrameBuffer(cfg.FrameBytes),
	}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StreamSID returns the telephony-assigned stream identifier, or "" before
// the stream has started.
func (s *Session) StreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSID
}

// HandleMessage processes one raw message from the telephony WebSocket.
// It returns [ErrSessionEnded] when the peer sends a stop message; any other
// non-nil error is unrecoverable for this call. Malformed media payloads are
// logged and skipped without error.
func (s *Session) HandleMessage(ctx context.Context, data []byte) error {
	env, err := twilio.ParseEnvelope(data)
	if err != nil {
		observe.Logger(ctx).Warn("discarding unparseable telephony message", "error", err)
		s.met.RecordDrop(ctx, "malformed")
		return nil
	}

	switch env.Event {
	case twilio.EventConnected:
		observe.Logger(ctx).Info("telephony stream connected")
		return nil
	case twilio.EventStart:
		return s.handleStart(ctx, env)
	case twilio.EventMedia:
		return s.handleMedia(ctx, env)
	case twilio.EventStop:
		observe.Logger(ctx).Info("telephony stream stopped", "stream_sid", s.StreamSID())
		return ErrSessionEnded
	default:
		observe.Logger(ctx).Debug("ignoring telephony event", "event", env.Event)
		return nil
	}
}

func (s *Session) handleStart(ctx context.Context, env *twilio.Envelope) error {
	s.mu.Lock()
	if s.state != StateAwaitingStart {
		st := s.state
		s.mu.Unlock()
		observe.Logger(ctx).Warn("ignoring duplicate start message", "state", st.String())
		return nil
	}
	if env.Start == nil || env.Start.StreamSID == "" {
		s.mu.Unlock()
		return errors.New("bridge: start message missing streamSid")
	}
	s.streamSID = env.Start.StreamSID
	s.caller = env.Start.Caller()
	s.mu.Unlock()

	sessCfg := s.cfg.Session
	caps := s.cfg.Provider.Capabilities()
	if sessCfg.InputRate <= 0 {
		sessCfg.InputRate = caps.InputRate
	}
	if sessCfg.OutputRate <= 0 {
		sessCfg.OutputRate = caps.OutputRate
	}

	connStart := time.Now()
	handle, err := s.cfg.Provider.Connect(ctx, sessCfg)
	if err != nil {
		s.met.RecordProviderError(ctx, s.cfg.ProviderName)
		return fmt.Errorf("bridge: connect AI peer: %w", err)
	}
	s.met.ConnectDuration.Record(ctx, time.Since(connStart).Seconds())

	// The pump outlives the read context's deadline semantics but carries
	// its values; teardown cancels it explicitly before closing the AI leg.
	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	s.ai = handle
	s.inputRate = sessCfg.InputRate
	s.outputRate = sessCfg.OutputRate
	s.pumpCancel = cancel
	s.pumpDone = make(chan struct{})
	s.state = StateActive
	s.started = time.Now()
	s.mu.Unlock()

	s.met.ActiveCalls.Add(ctx, 1)
	observe.Logger(ctx).Info("call started",
		"stream_sid", env.Start.StreamSID,
		"caller", s.caller,
		"provider", s.cfg.ProviderName,
		"input_rate", sessCfg.InputRate,
		"output_rate", sessCfg.OutputRate,
	)

	go s.outboundPump(pumpCtx, handle)
	return nil
}

func (s *Session) handleMedia(ctx context.Context, env *twilio.Envelope) error {
	s.mu.Lock()
	if s.state != StateActive {
		st := s.state
		s.mu.Unlock()
		if st == StateAwaitingStart {
			s.met.RecordDrop(ctx, "before_start")
		} else {
			s.met.RecordDrop(ctx, "while_closing")
		}
		return nil
	}
	ai := s.ai
	inputRate := s.inputRate
	s.mu.Unlock()

	if env.Media == nil {
		s.met.RecordDrop(ctx, "malformed")
		return nil
	}
	ulaw, err := env.Media.AudioPayload()
	if err != nil {
		observe.Logger(ctx).Warn("skipping undecodable media payload", "error", err)
		s.met.RecordDrop(ctx, "malformed")
		return nil
	}

	pcm := audio.DecodeUlaw(ulaw)

	// The inbound resample state is only ever touched from the read loop,
	// but it lives next to fields the pump reads, so keep it under mu.
	s.mu.Lock()
	pcm, s.inState = audio.Resample(pcm, s.cfg.TelephonyRate, inputRate, s.inState)
	s.frames.Push(pcm)
	frame := s.frames.Drain()
	s.mu.Unlock()

	if frame == nil {
		return nil
	}

	if err := ai.SendAudio(frame); err != nil {
		s.met.RecordProviderError(ctx, s.cfg.ProviderName)
		return fmt.Errorf("bridge: forward audio frame: %w", err)
	}
	s.met.InboundFrames.Add(ctx, 1)
	return nil
}

// outboundPump drains the AI peer's event stream until it ends or ctx is
// cancelled, relaying audio chunks back to the telephony peer.
func (s *Session) outboundPump(ctx context.Context, ai s2s.SessionHandle) {
	defer close(s.pumpDone)

	log := observe.Logger(ctx).With("provider", s.cfg.ProviderName)
	chunkCount := 0

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ai.Events():
			if !ok {
				if err := ai.Err(); err != nil {
					log.Error("AI session ended with error", "error", err)
					s.met.RecordProviderError(ctx, s.cfg.ProviderName)
				} else {
					log.Info("AI session ended")
				}
				s.abort()
				return
			}
			switch ev.Kind {
			case s2s.EventAudio:
				if s.relayAudio(ctx, ev.Audio) {
					chunkCount++
					if chunkCount%s.cfg.LogEvery == 0 {
						log.Debug("relayed audio chunks", "count", chunkCount)
					}
				}
			case s2s.EventTurnComplete:
				log.Debug("AI turn complete")
			case s2s.EventInterrupted:
				log.Info("AI generation interrupted")
			case s2s.EventText:
				log.Debug("AI text event", "text", ev.Text)
			case s2s.EventToolCall:
				log.Warn("ignoring unsupported tool call", "tool", ev.Tool.Name)
			}
		}
	}
}

// relayAudio converts one AI audio chunk to a telephony media message and
// sends it. Chunks arriving before the stream identifier is known are
// dropped. Reports whether the chunk was sent.
func (s *Session) relayAudio(ctx context.Context, pcm []byte) bool {
	s.mu.Lock()
	sid := s.streamSID
	s.mu.Unlock()
	if sid == "" {
		s.met.RecordDrop(ctx, "no_stream_sid")
		return false
	}

	pcm, s.outState = audio.Resample(pcm, s.outputRate, s.cfg.TelephonyRate, s.outState)
	msg, err := twilio.MediaMessage(sid, audio.EncodeUlaw(pcm))
	if err != nil {
		observe.Logger(ctx).Error("building media message", "error", err)
		return false
	}

	s.writeMu.Lock()
	err = s.cfg.Writer.WriteText(ctx, msg)
	s.writeMu.Unlock()
	if err != nil {
		observe.Logger(ctx).Warn("telephony write failed", "error", err)
		s.abort()
		return false
	}
	s.met.OutboundChunks.Add(ctx, 1)
	return true
}

// abort asks the owner to stop feeding messages, at most once.
func (s *Session) abort() {
	s.abortOnce.Do(func() {
		if s.cfg.Abort != nil {
			s.cfg.Abort()
		}
	})
}

// Close tears the session down: it cancels the outbound pump, waits for it
// to finish, then closes the AI session. Safe to call multiple times and
// from any state; only the first call does work.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		wasActive := s.state == StateActive
		s.state = StateClosing
		ai := s.ai
		cancel := s.pumpCancel
		done := s.pumpDone
		started := s.started
		s.mu.Unlock()

		if cancel != nil {
			cancel()
			<-done
		}
		if ai != nil {
			err = ai.Close()
		}

		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()

		if wasActive {
			s.met.ActiveCalls.Add(ctx, -1)
			s.met.CallDuration.Record(ctx, time.Since(started).Seconds())
			observe.Logger(ctx).Info("call ended",
				"stream_sid", s.StreamSID(),
				"duration", time.Since(started).Round(time.Millisecond),
			)
		}
	})
	return err
}
