// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_twilio_telephony

import (
	"strings"

	"github.com/twilio/twilio-go/twiml"
)

// StreamPath is the WebSocket route the control document points Twilio at.
const StreamPath = "/voice/stream"

// StreamURL derives the wss:// media-stream callback from the configured
// public base URL, whatever scheme it was written with.
func StreamURL(baseURL string) string {
	host := baseURL
	for _, prefix := range []string{"https://", "http://", "wss://", "ws://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	return "wss://" + strings.TrimSuffix(host, "/") + StreamPath
}

// ConnectStreamDocument renders the TwiML answer for an inbound call:
// connect the call to our bidirectional media stream.
func ConnectStreamDocument(baseURL string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceConnect{
			InnerElements: []twiml.Element{
				&twiml.VoiceStream{
					Url: StreamURL(baseURL),
				},
			},
		},
	})
}
