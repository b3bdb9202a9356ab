// Package twilio holds the wire types for the Twilio Media Streams
// WebSocket protocol and the TwiML response used to start a stream.
//
// Media Streams carries JSON text messages in both directions. Inbound audio
// arrives as base64-encoded μ-law at 8kHz; outbound audio is sent the same
// way, tagged with the stream SID assigned in the start message.
package twilio

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Event names used on the media-stream WebSocket.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventStop      = "stop"
)

// Envelope is the top-level JSON message exchanged on the media-stream
// WebSocket. Only the fields matching Event are populated.
type Envelope struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid,omitempty"`
	Start     *Start `json:"start,omitempty"`
	Media     *Media `json:"media,omitempty"`
}

// Start carries the stream metadata Twilio sends once the call's media
// stream begins.
type Start struct {
	StreamSID        string            `json:"streamSid"`
	CallSID          string            `json:"callSid,omitempty"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// Media carries one chunk of audio in either direction.
type Media struct {
	Payload string `json:"payload"` // base64-encoded μ-law bytes
}

// ParseEnvelope decodes one WebSocket text message.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("twilio: parse envelope: %w", err)
	}
	return &env, nil
}

// Caller returns the caller id passed via the start message's custom
// parameters, or "unknown" when absent.
func (s *Start) Caller() string {
	if s == nil {
		return "unknown"
	}
	if c, ok := s.CustomParameters["caller"]; ok && c != "" {
		return c
	}
	return "unknown"
}

// AudioPayload base64-decodes the media payload into raw μ-law bytes.
func (m *Media) AudioPayload() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("twilio: decode media payload: %w", err)
	}
	return raw, nil
}

// MediaMessage builds the outbound media envelope for one μ-law chunk,
// addressed to the stream identified by sid.
func MediaMessage(sid string, ulaw []byte) ([]byte, error) {
	env := Envelope{
		Event:     EventMedia,
		StreamSID: sid,
		Media:     &Media{Payload: base64.StdEncoding.EncodeToString(ulaw)},
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("twilio: marshal media message: %w", err)
	}
	return data, nil
}
