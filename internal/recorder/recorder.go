// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	internal_audio "github.com/agriagents/voice-bridge/internal/audio"
	"github.com/agriagents/voice-bridge/pkg/commons"
	"github.com/google/uuid"
)

// CallRecorder streams the caller's raw mu-law to disk during the call and
// renders it to a WAV file when the call ends. Everything here is
// best-effort: a failed write never takes the call down, the caller just
// logs and moves on.
type CallRecorder struct {
	logger commons.Logger
	dir    string

	mu      sync.Mutex
	name    string
	raw     *os.File
	rawPath string
	done    bool
}

func NewCallRecorder(logger commons.Logger, dir string) *CallRecorder {
	return &CallRecorder{
		logger: logger,
		dir:    dir,
	}
}

// Begin names the capture after the provider call identifier. Media arriving
// before start is tolerated: Write lazily opens an anonymous capture and
// Begin only takes effect if nothing has been written yet.
func (r *CallRecorder) Begin(callSid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.raw == nil && callSid != "" {
		r.name = callSid
	}
}

// Write appends raw mu-law bytes to the capture file, opening it on first use.
func (r *CallRecorder) Write(mulaw []byte) error {
	if len(mulaw) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil
	}
	if r.raw == nil {
		if err := r.open(); err != nil {
			return err
		}
	}
	_, err := r.raw.Write(mulaw)
	return err
}

func (r *CallRecorder) open() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("recorder: mkdir %s: %w", r.dir, err)
	}
	if r.name == "" {
		r.name = uuid.NewString()
	}
	r.rawPath = filepath.Join(r.dir, r.name+".ulaw")
	f, err := os.Create(r.rawPath)
	if err != nil {
		return fmt.Errorf("recorder: create %s: %w", r.rawPath, err)
	}
	r.raw = f
	return nil
}

// Finalize closes the raw capture, converts it to a WAV file next to it and
// removes the raw file on success. Returns the WAV path. Idempotent; a
// second call is a no-op.
func (r *CallRecorder) Finalize() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return "", nil
	}
	r.done = true

	if r.raw == nil {
		return "", nil // no media ever arrived
	}
	if err := r.raw.Close(); err != nil {
		return "", fmt.Errorf("recorder: close raw: %w", err)
	}

	mulaw, err := os.ReadFile(r.rawPath)
	if err != nil {
		return "", fmt.Errorf("recorder: read raw: %w", err)
	}

	wav := internal_audio.WrapWAV(internal_audio.DecodeULaw(mulaw), internal_audio.SampleRate8k, 1)
	wavPath := filepath.Join(r.dir, r.name+".wav")
	if err := os.WriteFile(wavPath, wav, 0o644); err != nil {
		return "", fmt.Errorf("recorder: write wav: %w", err)
	}

	if err := os.Remove(r.rawPath); err != nil {
		r.logger.Warnf("recorder: unable to remove raw capture %s: %v", r.rawPath, err)
	}
	return wavPath, nil
}
