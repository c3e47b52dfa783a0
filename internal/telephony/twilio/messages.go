// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_twilio_telephony

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Media Streams protocol events.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventStop      = "stop"
)

// StreamMessage is one JSON control frame on the Media Streams WebSocket,
// discriminated by Event.
type StreamMessage struct {
	Event     string        `json:"event"`
	StreamSid string        `json:"streamSid,omitempty"`
	Protocol  string        `json:"protocol,omitempty"`
	Version   string        `json:"version,omitempty"`
	Start     *StartPayload `json:"start,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
	Stop      *StopPayload  `json:"stop,omitempty"`
}

// StartPayload carries the call and stream identifiers. StreamSid is
// mandatory for routing outbound media back to the caller.
type StartPayload struct {
	AccountSid string   `json:"accountSid"`
	CallSid    string   `json:"callSid"`
	StreamSid  string   `json:"streamSid"`
	Tracks     []string `json:"tracks,omitempty"`
}

// MediaPayload wraps one chunk of base64 mu-law audio. Chunks are ordinarily
// 160 bytes (20 ms) but the size is not guaranteed.
type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

type StopPayload struct {
	AccountSid string `json:"accountSid,omitempty"`
	CallSid    string `json:"callSid,omitempty"`
}

// ParseMessage decodes a raw WebSocket frame into a StreamMessage.
func ParseMessage(raw []byte) (*StreamMessage, error) {
	var msg StreamMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("twilio: malformed stream message: %w", err)
	}
	return &msg, nil
}

// DecodeAudio returns the mu-law bytes of a media message.
func (m *StreamMessage) DecodeAudio() ([]byte, error) {
	if m.Media == nil {
		return nil, fmt.Errorf("twilio: media event without media payload")
	}
	audio, err := base64.StdEncoding.DecodeString(m.Media.Payload)
	if err != nil {
		return nil, fmt.Errorf("twilio: media payload is not base64: %w", err)
	}
	return audio, nil
}

// NewOutboundMedia builds the outbound media frame for one 20 ms mu-law chunk.
func NewOutboundMedia(streamSid string, mulaw []byte) *StreamMessage {
	return &StreamMessage{
		Event:     EventMedia,
		StreamSid: streamSid,
		Media: &MediaPayload{
			Payload: base64.StdEncoding.EncodeToString(mulaw),
		},
	}
}
