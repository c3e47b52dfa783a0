// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_twilio_telephony

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Message Parsing Tests ---

func TestParseMessage_Start(t *testing.T) {
	raw := []byte(`{"event":"start","streamSid":"MZabc","start":{"callSid":"CAxyz","streamSid":"MZabc","tracks":["inbound"]}}`)
	msg, err := ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, EventStart, msg.Event)
	assert.Equal(t, "MZabc", msg.StreamSid)
	require.NotNil(t, msg.Start)
	assert.Equal(t, "CAxyz", msg.Start.CallSid)
	assert.Equal(t, "MZabc", msg.Start.StreamSid)
}

func TestParseMessage_Media(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{0xff, 0x7f, 0x00})
	raw, _ := json.Marshal(StreamMessage{
		Event:     EventMedia,
		StreamSid: "MZabc",
		Media:     &MediaPayload{Track: "inbound", Chunk: "3", Payload: payload},
	})
	msg, err := ParseMessage(raw)
	require.NoError(t, err)

	audio, err := msg.DecodeAudio()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0x7f, 0x00}, audio)
}

func TestParseMessage_MalformedJSON(t *testing.T) {
	_, err := ParseMessage([]byte(`{"event":`))
	assert.Error(t, err)
}

func TestDecodeAudio_BadBase64(t *testing.T) {
	msg := &StreamMessage{Event: EventMedia, Media: &MediaPayload{Payload: "!!not-base64!!"}}
	_, err := msg.DecodeAudio()
	assert.Error(t, err)
}

func TestDecodeAudio_MissingPayload(t *testing.T) {
	msg := &StreamMessage{Event: EventMedia}
	_, err := msg.DecodeAudio()
	assert.Error(t, err)
}

// --- Outbound Media Tests ---

func TestNewOutboundMedia_Shape(t *testing.T) {
	mulaw := []byte{0x01, 0x02, 0x03}
	msg := NewOutboundMedia("MZabc", mulaw)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "media", decoded["event"])
	assert.Equal(t, "MZabc", decoded["streamSid"])
	media := decoded["media"].(map[string]interface{})
	assert.Equal(t, base64.StdEncoding.EncodeToString(mulaw), media["payload"])
}

// --- TwiML Tests ---

func TestStreamURL(t *testing.T) {
	tests := []struct {
		base     string
		expected string
	}{
		{"example.ngrok.io", "wss://example.ngrok.io/voice/stream"},
		{"https://example.ngrok.io", "wss://example.ngrok.io/voice/stream"},
		{"http://example.ngrok.io/", "wss://example.ngrok.io/voice/stream"},
		{"wss://example.ngrok.io", "wss://example.ngrok.io/voice/stream"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			assert.Equal(t, tt.expected, StreamURL(tt.base))
		})
	}
}

func TestConnectStreamDocument(t *testing.T) {
	doc, err := ConnectStreamDocument("example.ngrok.io")
	require.NoError(t, err)
	assert.Contains(t, doc, "<Connect>")
	assert.Contains(t, doc, `<Stream url="wss://example.ngrok.io/voice/stream"`)
}
