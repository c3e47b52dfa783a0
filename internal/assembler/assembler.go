// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_assembler

import (
	"strings"
	"sync"
	"time"

	"github.com/agriagents/voice-bridge/pkg/commons"
)

// DefaultSilenceTimeout is how long we wait after the last partial before
// declaring the utterance finished ourselves.
const DefaultSilenceTimeout = 1200 * time.Millisecond

// MinUtteranceLength is the shortest trimmed transcript worth answering.
const MinUtteranceLength = 8

// Option configures an Assembler.
type Option func(*Assembler)

// WithSilenceTimeout overrides the silence window.
func WithSilenceTimeout(d time.Duration) Option {
	return func(a *Assembler) { a.silence = d }
}

// Assembler aggregates the partial transcripts of one in-progress utterance.
// STT providers emit progressively longer partials for the same speech, so a
// flush selects the longest partial as the finished utterance. A silence
// timer restarted on every partial acts as the fallback end-of-utterance
// signal when the provider never sends speech_end.
type Assembler struct {
	logger  commons.Logger
	silence time.Duration

	// onSilence fires on the timer goroutine when the window elapses; the
	// owner routes it back into its event queue.
	onSilence func()

	mu       sync.Mutex
	partials []string
	timer    *time.Timer
}

func NewAssembler(logger commons.Logger, onSilence func(), opts ...Option) *Assembler {
	a := &Assembler{
		logger:    logger,
		silence:   DefaultSilenceTimeout,
		onSilence: onSilence,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add records a partial transcript and restarts the silence timer.
func (a *Assembler) Add(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.partials = append(a.partials, text)
	a.restartTimerLocked()
}

// Clear drops the in-progress utterance (the caller started speaking again).
func (a *Assembler) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.partials = nil
	a.stopTimerLocked()
}

// Flush finishes the utterance: it returns the longest accumulated partial
// and resets the assembler. When speech_end and the silence timer race, the
// winner takes the transcript and the loser flushes an empty list, a no-op.
func (a *Assembler) Flush() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopTimerLocked()

	longest := ""
	for _, p := range a.partials {
		if len(p) > len(longest) {
			longest = p
		}
	}
	a.partials = nil
	return longest
}

// Pending reports whether an utterance is in progress.
func (a *Assembler) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.partials) > 0
}

// Close stops the silence timer for good.
func (a *Assembler) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopTimerLocked()
}

func (a *Assembler) restartTimerLocked() {
	a.stopTimerLocked()
	if a.onSilence != nil {
		a.timer = time.AfterFunc(a.silence, a.onSilence)
	}
}

func (a *Assembler) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
