// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcribe_sarvam

import (
	"encoding/json"
	"strings"
)

type upstreamKind int

const (
	upstreamUnknown upstreamKind = iota
	upstreamTranscript
	upstreamSpeechStart
	upstreamSpeechEnd
	upstreamError
)

type upstreamMessage struct {
	kind       upstreamKind
	transcript string
	message    string
	raw        string
}

// wire mirrors the upstream JSON. Providers differ on whether the transcript
// sits at the top level or nested under data, so both are accepted.
type wire struct {
	Type       string `json:"type"`
	Event      string `json:"event"`
	Transcript string `json:"transcript"`
	Message    string `json:"message"`
	Data       *struct {
		Transcript string `json:"transcript"`
	} `json:"data"`
}

func parseUpstream(raw []byte) (*upstreamMessage, error) {
	var w wire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}

	kind := w.Type
	if kind == "" {
		kind = w.Event
	}

	msg := &upstreamMessage{raw: kind}
	switch strings.ToLower(kind) {
	case "transcript":
		msg.kind = upstreamTranscript
		msg.transcript = strings.TrimSpace(w.Transcript)
		if msg.transcript == "" && w.Data != nil {
			msg.transcript = strings.TrimSpace(w.Data.Transcript)
		}
	case "speech_start":
		msg.kind = upstreamSpeechStart
	case "speech_end":
		msg.kind = upstreamSpeechEnd
	case "error":
		msg.kind = upstreamError
		msg.message = w.Message
	default:
		msg.kind = upstreamUnknown
	}
	return msg, nil
}
