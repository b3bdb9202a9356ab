// Package s2s defines the Provider interface for realtime Speech-to-Speech
// (S2S) backends.
//
// An S2S provider wraps a realtime voice AI service that accepts raw audio
// input and returns synthesised audio output in a single, stateful session.
// Examples include Google's Gemini Live API and the OpenAI Realtime API.
//
// The central abstraction is SessionHandle: a bidirectional session that
// accepts PCM16 audio and emits a stream of tagged Events. Provider-specific
// response shapes (inline data parts, delta events, function calls) are
// decoded once at this boundary so consumers only ever see a clean
// audio/control event stream.
//
// All implementations must be safe for concurrent use.
package s2s

import (
	"context"
	"time"
)

// EventKind discriminates the possible response kinds of an S2S session.
type EventKind int

const (
	// EventAudio carries a chunk of synthesised PCM16 audio at the
	// session's output rate.
	EventAudio EventKind = iota

	// EventTurnComplete signals the end of one continuous span of model
	// audio. Carries no payload.
	EventTurnComplete

	// EventInterrupted signals that the model abandoned its current turn,
	// typically because the caller started speaking. Carries no payload.
	EventInterrupted

	// EventText carries a text part emitted alongside or instead of audio.
	EventText

	// EventToolCall carries a tool invocation requested by the model.
	EventToolCall
)

// String returns the event kind name for logging.
func (k EventKind) String() string {
	switch k {
	case EventAudio:
		return "audio"
	case EventTurnComplete:
		return "turn_complete"
	case EventInterrupted:
		return "interrupted"
	case EventText:
		return "text"
	case EventToolCall:
		return "tool_call"
	default:
		return "unknown"
	}
}

// Event is one tagged response from the S2S session. Exactly the payload
// field matching Kind is populated.
type Event struct {
	Kind EventKind

	// Audio holds raw PCM16 bytes when Kind is EventAudio.
	Audio []byte

	// Text holds the text content when Kind is EventText.
	Text string

	// Tool holds the requested invocation when Kind is EventToolCall.
	Tool ToolCall
}

// ToolCall is a tool/function invocation requested by the model.
type ToolCall struct {
	// ID is the provider-assigned identifier for this call.
	ID string

	// Name is the tool name.
	Name string

	// Arguments is the JSON-encoded arguments string.
	Arguments string
}

// SessionConfig is the initial configuration for a new S2S session.
type SessionConfig struct {
	// Voice is the provider-specific voice name used for synthesised
	// speech output. Empty selects the provider default.
	Voice string

	// Instructions is the system-level prompt injected at session start.
	Instructions string

	// InputRate is the sample rate in Hz of PCM16 sent via SendAudio.
	InputRate int

	// OutputRate is the sample rate in Hz of PCM16 carried by EventAudio.
	OutputRate int
}

// Capabilities describes static properties of an S2S provider. The values
// are assumed constant for the lifetime of the Provider instance.
type Capabilities struct {
	// InputRate is the PCM16 sample rate the provider expects to receive.
	InputRate int

	// OutputRate is the PCM16 sample rate the provider synthesises at.
	OutputRate int

	// MaxSessionDuration is the provider's hard upper bound on session
	// lifetime. Zero means no documented limit.
	MaxSessionDuration time.Duration

	// Voices lists the voice names available for this provider.
	Voices []string
}

// SessionHandle represents an open S2S session. It is an interface so that
// test code can supply mock implementations without a live connection.
//
// The session is the hot path of the bridge; every method must return
// quickly. Output is channel-based to avoid blocking the caller's audio
// loop. Callers must call Close when the session is no longer needed.
type SessionHandle interface {
	// SendAudio delivers a raw PCM16 chunk at the session's input rate to
	// the provider. Returns an error if the session is closed or the
	// provider cannot accept the chunk.
	SendAudio(chunk []byte) error

	// Events returns a read-only channel of tagged session events. The
	// channel is closed when the session ends or a mid-stream error
	// occurs; check Err afterwards to distinguish the two. Consumers must
	// drain this channel promptly to prevent backpressure from stalling
	// the provider's receive loop.
	Events() <-chan Event

	// Err returns the error that caused the Events channel to close
	// prematurely, or nil if the session ended cleanly.
	Err() error

	// Close terminates the session and releases all resources. Calling
	// Close more than once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over any S2S backend.
//
// Implementations must be safe for concurrent use; each call gets a fresh
// session for its lifetime, and sessions are never shared between calls.
type Provider interface {
	// Connect establishes a new S2S session with the given configuration.
	// The returned SessionHandle is ready to accept audio immediately.
	// Returns an error if the session cannot be established, for example
	// on authentication failure or when ctx is already cancelled. The
	// caller owns the SessionHandle and is responsible for calling Close.
	Connect(ctx context.Context, cfg SessionConfig) (SessionHandle, error)

	// Capabilities returns static metadata about the underlying model.
	Capabilities() Capabilities
}
