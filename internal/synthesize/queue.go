// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_synthesize

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/agriagents/voice-bridge/pkg/commons"
)

const (
	DefaultLanguage = "en-IN"

	maxAttempts = 2
	retryDelay  = 500 * time.Millisecond

	// Segments shorter than this synthesise badly and waste quota.
	minSpeakWords = 5
)

// speakMu serialises provider calls across the whole process. The upstream
// rate limit is per account, not per call, so the guard must be global too.
var speakMu sync.Mutex

// Queue dispatches synthesis jobs one at a time. Speak never fails; callers
// treat nil audio as "skip this segment" and keep the call alive.
type Queue struct {
	logger   commons.Logger
	provider Provider
	sleep    func(time.Duration)
}

// NewQueue wraps a Provider with the serialisation and retry policy.
func NewQueue(logger commons.Logger, provider Provider) *Queue {
	return &Queue{
		logger:   logger,
		provider: provider,
		sleep:    time.Sleep,
	}
}

// Speak synthesises text in the given language, defaulting to en-IN. The
// call blocks until every earlier job in the process has finished.
func (q *Queue) Speak(ctx context.Context, text string, language string) []byte {
	if language == "" {
		language = DefaultLanguage
	}
	if len(strings.Fields(text)) < minSpeakWords {
		q.logger.Debugf("tts-queue: skipping short segment %q", text)
		return nil
	}

	speakMu.Lock()
	defer speakMu.Unlock()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			q.logger.Debugf("tts-queue: context done, dropping segment %q", text)
			return nil
		}
		audio, err := q.provider.Synthesize(ctx, text, language)
		if err == nil {
			return audio
		}
		q.logger.Warnf("tts-queue: attempt %d/%d failed for %q: %v", attempt, maxAttempts, text, err)
		if attempt < maxAttempts {
			q.sleep(retryDelay)
		}
	}
	q.logger.Errorf("tts-queue: giving up on segment %q after %d attempts", text, maxAttempts)
	return nil
}
