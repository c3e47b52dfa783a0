// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcribe_sarvam

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	internal_audio "github.com/agriagents/voice-bridge/internal/audio"
	"github.com/agriagents/voice-bridge/pkg/commons"
)

const (
	SARVAM_STT_URL = "wss://api.sarvam.ai/speech-to-text/streaming"
	MODEL          = "saarika:v2.5"

	// minBufferedMs is how much staged PCM we accumulate before shipping a
	// transcribe frame upstream.
	minBufferedMs = 200

	eventChannelSize = 32
)

// EventKind discriminates upstream speech events.
type EventKind int

const (
	EventTranscript EventKind = iota
	EventSpeechStart
	EventSpeechEnd
	EventClosed
)

// Event is one upstream speech event delivered to the session orchestrator.
// For EventClosed, Code carries the WebSocket close code (-1 when the
// connection died without a close frame).
type Event struct {
	Kind EventKind
	Text string
	Code int
}

// Options configures a Sarvam streaming transcription session.
type Options struct {
	Key      string
	Language string
	// URL overrides the upstream endpoint; tests point it at a local server.
	URL string
}

// Session manages one streaming speech-to-text connection: dialing,
// PCM staging, the read task and the reconnect policy. Audio written before
// the socket is open is held and flushed right after open. Reconnect happens
// only on a normal (1000) close with no sticky upstream error.
type Session struct {
	logger commons.Logger
	opts   Options

	events chan Event

	mu       sync.Mutex
	conn     *websocket.Conn
	open     bool
	hadError bool
	stopped  bool
	pcm      bytes.Buffer
}

func NewSession(logger commons.Logger, opts Options) *Session {
	if opts.URL == "" {
		opts.URL = SARVAM_STT_URL
	}
	if opts.Language == "" {
		opts.Language = "unknown"
	}
	return &Session{
		logger: logger,
		opts:   opts,
		events: make(chan Event, eventChannelSize),
	}
}

// Events is the upstream event stream consumed by the orchestrator.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Start dials the upstream and launches the read task. A dial failure leaves
// the session dark; the call carries on without transcription.
func (s *Session) Start() error {
	if err := s.dial(); err != nil {
		return err
	}
	go s.run()
	return nil
}

func (s *Session) connectionString() string {
	q := url.Values{}
	q.Set("model", MODEL)
	q.Set("language-code", s.opts.Language)
	q.Set("input-audio-codec", "linear16")
	q.Set("sample-rate", "8000")
	q.Set("mode", "transcription")
	q.Set("vad-sensitivity", "high")
	return s.opts.URL + "?" + q.Encode()
}

func (s *Session) dial() error {
	headers := map[string][]string{
		"api-subscription-key": {s.opts.Key},
	}
	conn, _, err := websocket.DefaultDialer.Dial(s.connectionString(), headers)
	if err != nil {
		return fmt.Errorf("sarvam-stt: dial: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.open = true
	held := s.takeStagedLocked(0)
	s.mu.Unlock()

	// Audio staged while the socket was down goes out immediately.
	if len(held) > 0 {
		s.send(held)
	}
	return nil
}

// run is the long-lived read task: it decodes upstream events, pushes them to
// the event queue, and applies the reconnect policy when the socket closes.
func (s *Session) run() {
	defer close(s.events)
	for {
		code := s.readLoop()

		s.mu.Lock()
		s.open = false
		s.conn = nil
		reconnect := code == websocket.CloseNormalClosure && !s.stopped && !s.hadError
		s.mu.Unlock()

		s.push(Event{Kind: EventClosed, Code: code})

		if !reconnect {
			return
		}
		s.logger.Infof("sarvam-stt: upstream closed normally, reopening")
		if err := s.dial(); err != nil {
			s.logger.Errorf("sarvam-stt: reconnect failed, transcription dark: %v", err)
			return
		}
	}
}

// readLoop consumes upstream messages until the socket dies, returning the
// close code (-1 when none was delivered).
func (s *Session) readLoop() int {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return -1
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				return ce.Code
			}
			return -1
		}
		s.handleMessage(raw)
	}
}

func (s *Session) handleMessage(raw []byte) {
	msg, err := parseUpstream(raw)
	if err != nil {
		s.logger.Warnf("sarvam-stt: undecodable upstream message: %v", err)
		return
	}

	switch msg.kind {
	case upstreamTranscript:
		if msg.transcript != "" {
			s.push(Event{Kind: EventTranscript, Text: msg.transcript})
		}
	case upstreamSpeechStart:
		s.push(Event{Kind: EventSpeechStart})
	case upstreamSpeechEnd:
		s.push(Event{Kind: EventSpeechEnd})
	case upstreamError:
		s.mu.Lock()
		s.hadError = true
		s.mu.Unlock()
		s.logger.Errorf("sarvam-stt: upstream error: %s", msg.message)
	default:
		s.logger.Debugf("sarvam-stt: ignoring upstream event %q", msg.raw)
	}
}

// WriteAudio stages LINEAR16 8 kHz samples and ships a transcribe frame once
// at least 200 ms is buffered and the socket is open.
func (s *Session) WriteAudio(pcm []byte) {
	s.mu.Lock()
	s.pcm.Write(pcm)
	if !s.open {
		s.mu.Unlock()
		return
	}
	buffered := s.takeStagedLocked(minBufferedMs * internal_audio.PCMBytesPerMillisecond(internal_audio.SampleRate8k))
	s.mu.Unlock()

	if len(buffered) > 0 {
		s.send(buffered)
	}
}

// Flush ships whatever is staged regardless of the 200 ms threshold.
func (s *Session) Flush() {
	s.mu.Lock()
	buffered := s.takeStagedLocked(1)
	s.mu.Unlock()
	if len(buffered) > 0 {
		s.send(buffered)
	}
}

// takeStagedLocked drains the stage buffer when it holds at least min bytes.
// min==0 drains unconditionally. Caller holds s.mu.
func (s *Session) takeStagedLocked(min int) []byte {
	if s.pcm.Len() == 0 || s.pcm.Len() < min {
		return nil
	}
	out := make([]byte, s.pcm.Len())
	s.pcm.Read(out)
	return out
}

func (s *Session) send(pcm []byte) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	wav := internal_audio.WrapWAV(pcm, internal_audio.SampleRate8k, 1)
	frame := map[string]interface{}{
		"event": "transcribe",
		"audio": map[string]interface{}{
			"data":        base64.StdEncoding.EncodeToString(wav),
			"encoding":    "audio/wav",
			"sample_rate": internal_audio.SampleRate8k,
		},
	}
	if err := conn.WriteJSON(frame); err != nil {
		s.logger.Errorf("sarvam-stt: unable to write transcribe frame: %v", err)
	}
}

// Close flushes staged PCM, marks the session stopped and tears down the
// socket. Idempotent; errors are ignored by design of the teardown path.
func (s *Session) Close() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	buffered := s.takeStagedLocked(1)
	conn := s.conn
	s.mu.Unlock()

	if len(buffered) > 0 && conn != nil {
		s.send(buffered)
	}
	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}
}

func (s *Session) push(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Warnw("sarvam-stt: event queue full, dropping event", "kind", ev.Kind)
	}
}
