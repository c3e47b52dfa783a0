// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_session

import (
	"context"
	"errors"
	"sync"
	"time"

	internal_assembler "github.com/agriagents/voice-bridge/internal/assembler"
	internal_audio "github.com/agriagents/voice-bridge/internal/audio"
	internal_llm "github.com/agriagents/voice-bridge/internal/llm"
	internal_twilio_telephony "github.com/agriagents/voice-bridge/internal/telephony/twilio"
	internal_transcribe_sarvam "github.com/agriagents/voice-bridge/internal/transcribe/sarvam"
	"github.com/agriagents/voice-bridge/pkg/commons"
)

// WelcomeMessage is spoken to the caller right after the stream starts.
const WelcomeMessage = "Welcome to Agri Agents. Please tell me your question."

const eventQueueSize = 256

// Conn is the caller-side WebSocket. *websocket.Conn satisfies it; tests use
// an in-memory fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v interface{}) error
	Close() error
}

// Transcriber is the upstream speech-to-text session.
type Transcriber interface {
	Start() error
	Events() <-chan internal_transcribe_sarvam.Event
	WriteAudio(pcm []byte)
	Close()
}

// Synthesizer turns a text segment into PCM16LE @ 8 kHz. A nil result means
// the segment is skipped.
type Synthesizer interface {
	Speak(ctx context.Context, text string, language string) []byte
}

// Recorder captures the caller's raw audio for later review.
type Recorder interface {
	Begin(callSid string)
	Write(mulaw []byte) error
	Finalize() (string, error)
}

// Pacer emits a PCM reply as real-time telephony frames.
type Pacer interface {
	Pace(ctx context.Context, pcm []byte, send func(mulaw []byte) error) (int, error)
}

type eventKind int

const (
	evStart eventKind = iota
	evMedia
	evStop
	evWSClosed
	evTranscript
	evSpeechStart
	evSpeechEnd
	evSTTClosed
	evSilence
	evTurnDone
)

// event is one entry of the per-session queue. All session state mutation
// happens in the Run loop consuming these, so the state record needs no lock.
type event struct {
	kind      eventKind
	text      string
	audio     []byte
	callSid   string
	streamSid string
	code      int
	err       error
}

// Option configures a Session.
type Option func(*Session)

// WithLanguage sets the synthesis language code (defaults upstream to en-IN).
func WithLanguage(language string) Option {
	return func(s *Session) { s.language = language }
}

// WithWelcome overrides the greeting line.
func WithWelcome(text string) Option {
	return func(s *Session) { s.welcome = text }
}

// WithSilenceTimeout overrides the utterance silence window.
func WithSilenceTimeout(d time.Duration) Option {
	return func(s *Session) { s.silence = d }
}

// WithPacer replaces the real-time frame pacer.
func WithPacer(p Pacer) Option {
	return func(s *Session) { s.pacer = p }
}

// Session is the per-call orchestrator. It owns the conversation history, the
// stream identifiers and the pipeline flags; upstream adapters are long-lived
// tasks that push onto the event queue, and the Run loop is the only writer.
type Session struct {
	logger commons.Logger
	conn   Conn

	stt       Transcriber
	llm       internal_llm.Streamer
	tts       Synthesizer
	recorder  Recorder
	pacer     Pacer
	assembler *internal_assembler.Assembler

	language string
	welcome  string
	silence  time.Duration

	events chan event
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	// writeMu guards the outbound socket; the welcome and turn playbacks run
	// on their own goroutines.
	writeMu sync.Mutex

	// playbackMu keeps each segment's frames contiguous on the wire. The TTS
	// queue serialises synthesis but not pacing, and the welcome can still be
	// pacing when the first turn starts speaking.
	playbackMu sync.Mutex

	// Owned by the Run loop.
	callSid    string
	streamSid  string
	stopped    bool
	processing bool
	history    []internal_llm.Turn
}

func NewSession(
	logger commons.Logger,
	conn Conn,
	stt Transcriber,
	llm internal_llm.Streamer,
	tts Synthesizer,
	recorder Recorder,
	opts ...Option,
) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		logger:   logger,
		conn:     conn,
		stt:      stt,
		llm:      llm,
		tts:      tts,
		recorder: recorder,
		pacer:    internal_audio.NewFramePacer(logger),
		welcome:  WelcomeMessage,
		silence:  internal_assembler.DefaultSilenceTimeout,
		events:   make(chan event, eventQueueSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.assembler = internal_assembler.NewAssembler(logger,
		func() { s.push(event{kind: evSilence}) },
		internal_assembler.WithSilenceTimeout(s.silence))
	return s
}

// History returns the conversation after the call has ended.
func (s *Session) History() []internal_llm.Turn {
	out := make([]internal_llm.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Run drives the call to completion. It blocks until the caller hangs up, the
// provider sends stop, or the socket dies, then tears everything down.
func (s *Session) Run() {
	defer s.shutdown()

	if err := s.stt.Start(); err != nil {
		// The call carries on without transcription rather than dropping.
		s.logger.Errorf("session: transcription unavailable: %v", err)
	}
	go s.readTask()
	go s.sttTask()

	for ev := range s.events {
		if s.handle(ev) {
			return
		}
	}
}

// readTask is the long-lived WebSocket reader. It parses control frames and
// pushes typed events; it never touches session state directly.
func (s *Session) readTask() {
	defer s.push(event{kind: evWSClosed})
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := internal_twilio_telephony.ParseMessage(raw)
		if err != nil {
			s.logger.Warnf("session: dropping malformed frame: %v", err)
			continue
		}

		switch msg.Event {
		case internal_twilio_telephony.EventConnected:
			s.logger.Debugf("session: media stream connected, protocol %s", msg.Protocol)
		case internal_twilio_telephony.EventStart:
			if msg.Start == nil {
				s.logger.Warnf("session: start frame without payload")
				continue
			}
			s.push(event{kind: evStart, callSid: msg.Start.CallSid, streamSid: msg.Start.StreamSid})
		case internal_twilio_telephony.EventMedia:
			mulaw, err := msg.DecodeAudio()
			if err != nil {
				s.logger.Warnf("session: dropping media frame: %v", err)
				continue
			}
			s.push(event{kind: evMedia, audio: mulaw})
		case internal_twilio_telephony.EventStop:
			s.push(event{kind: evStop})
			return
		default:
			s.logger.Debugf("session: ignoring event %q", msg.Event)
		}
	}
}

// sttTask forwards upstream speech events into the session queue.
func (s *Session) sttTask() {
	for ev := range s.stt.Events() {
		switch ev.Kind {
		case internal_transcribe_sarvam.EventTranscript:
			s.push(event{kind: evTranscript, text: ev.Text})
		case internal_transcribe_sarvam.EventSpeechStart:
			s.push(event{kind: evSpeechStart})
		case internal_transcribe_sarvam.EventSpeechEnd:
			s.push(event{kind: evSpeechEnd})
		case internal_transcribe_sarvam.EventClosed:
			s.push(event{kind: evSTTClosed, code: ev.Code})
		}
	}
}

func (s *Session) push(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// handle applies one event to the owned state. Returns true when the call is
// over.
func (s *Session) handle(ev event) bool {
	switch ev.kind {
	case evStart:
		s.callSid = ev.callSid
		s.streamSid = ev.streamSid
		s.logger.Infow("session: call started", "callSid", s.callSid, "streamSid", s.streamSid)
		s.recorder.Begin(s.callSid)
		go s.playback(s.welcome)

	case evMedia:
		if err := s.recorder.Write(ev.audio); err != nil {
			s.logger.Warnf("session: recording write failed: %v", err)
		}
		s.stt.WriteAudio(internal_audio.DecodeULaw(ev.audio))

	case evTranscript:
		s.assembler.Add(ev.text)

	case evSpeechStart:
		s.assembler.Clear()

	case evSpeechEnd, evSilence:
		s.flushUtterance()

	case evSTTClosed:
		// Some upstreams close with 1000 after an utterance instead of
		// sending speech_end; treat that close as the end-of-utterance
		// signal. Any other code just leaves transcription dark.
		if ev.code == 1000 && s.assembler.Pending() {
			s.flushUtterance()
		} else if ev.code != 1000 {
			s.logger.Warnf("session: transcription closed with code %d, continuing without it", ev.code)
		}

	case evTurnDone:
		s.finishTurn(ev)

	case evStop, evWSClosed:
		return true
	}
	return false
}

// flushUtterance finishes the in-progress utterance and, when it survives the
// filters, starts an LLM turn. At most one turn runs at a time; utterances
// arriving mid-turn are dropped.
func (s *Session) flushUtterance() {
	if s.stopped {
		return
	}
	text := s.assembler.Flush()
	if text == "" {
		return
	}
	if s.processing {
		s.logger.Debugf("session: turn in flight, dropping utterance %q", text)
		return
	}
	if internal_assembler.Rejected(text) {
		s.logger.Debugf("session: filtered utterance %q", text)
		return
	}

	s.logger.Infow("session: utterance accepted", "callSid", s.callSid, "text", text)
	s.processing = true
	s.history = append(s.history, internal_llm.Turn{Role: internal_llm.RoleUser, Text: text})

	snapshot := make([]internal_llm.Turn, len(s.history))
	copy(snapshot, s.history)
	go s.runTurn(snapshot)
}

// runTurn streams one LLM reply, playing segments as they complete, then
// reports back through the event queue.
func (s *Session) runTurn(history []internal_llm.Turn) {
	segmenter := &internal_llm.Segmenter{}
	reply, err := s.llm.StreamChatCompletion(s.ctx, history, func(delta string) error {
		for _, segment := range segmenter.Push(delta) {
			s.playback(segment)
		}
		return nil
	})
	if err == nil {
		for _, segment := range segmenter.Finish() {
			s.playback(segment)
		}
	}
	s.push(event{kind: evTurnDone, text: reply, err: err})
}

// finishTurn closes out an LLM turn. A turn that failed, was aborted or
// produced nothing leaves no trace in the history.
func (s *Session) finishTurn(ev event) {
	s.processing = false
	if ev.err != nil {
		s.logger.Warnf("session: turn ended early: %v", ev.err)
		s.popDanglingUserTurn()
		return
	}
	if ev.text == "" {
		s.popDanglingUserTurn()
		return
	}
	s.history = append(s.history, internal_llm.Turn{Role: internal_llm.RoleAssistant, Text: ev.text})
}

func (s *Session) popDanglingUserTurn() {
	if n := len(s.history); n > 0 && s.history[n-1].Role == internal_llm.RoleUser {
		s.history = s.history[:n-1]
	}
}

// playback synthesises one segment and paces it to the caller. Runs off the
// event loop; a dead synthesis or a stopped session is silently skipped.
func (s *Session) playback(text string) {
	s.playbackMu.Lock()
	defer s.playbackMu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	audio := s.tts.Speak(s.ctx, text, s.language)
	if len(audio) == 0 {
		return
	}
	if _, err := s.pacer.Pace(s.ctx, audio, s.sendMedia); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warnf("session: playback interrupted: %v", err)
	}
}

func (s *Session) sendMedia(mulaw []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(internal_twilio_telephony.NewOutboundMedia(s.streamSid, mulaw))
}

// shutdown cancels all in-flight work and releases the call's resources.
// Idempotent; every exit path of Run lands here exactly once.
func (s *Session) shutdown() {
	s.once.Do(func() {
		s.stopped = true
		s.cancel()
		close(s.done)

		s.assembler.Close()
		s.stt.Close()

		if s.processing {
			s.processing = false
			s.popDanglingUserTurn()
		}

		if path, err := s.recorder.Finalize(); err != nil {
			s.logger.Warnf("session: recording finalize failed: %v", err)
		} else if path != "" {
			s.logger.Infof("session: recording saved to %s", path)
		}

		_ = s.conn.Close()
		s.logger.Infow("session: call ended", "callSid", s.callSid, "turns", len(s.history))
	})
}
