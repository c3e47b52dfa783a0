// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_audio

import (
	"context"
	"testing"
	"time"

	"github.com/agriagents/voice-bridge/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPacer(t *testing.T) (*FramePacer, *int) {
	t.Helper()
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	fp := NewFramePacer(logger)
	sleeps := 0
	fp.sleep = func(time.Duration) { sleeps++ }
	return fp, &sleeps
}

func TestFramePacer_FrameCountAndSizes(t *testing.T) {
	tests := []struct {
		name       string
		pcmLen     int
		wantFrames int
		wantLast   int // mu-law bytes in the final frame
	}{
		{"exact multiple", 960, 3, 160},
		{"trailing partial", 800, 3, 80},
		{"single short frame", 100, 1, 50},
		{"one frame", 320, 1, 160},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp, _ := newTestPacer(t)
			var frames [][]byte
			sent, err := fp.Pace(context.Background(), make([]byte, tt.pcmLen), func(mulaw []byte) error {
				frames = append(frames, mulaw)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrames, sent)
			require.Len(t, frames, tt.wantFrames)

			total := 0
			for i, f := range frames {
				assert.LessOrEqual(t, len(f), ULawFrameBytes, "frame %d larger than 20ms", i)
				total += len(f)
			}
			assert.Equal(t, tt.wantLast, len(frames[len(frames)-1]))
			// One mu-law byte per source sample.
			assert.Equal(t, tt.pcmLen/2, total, "decoded length must equal source sample count")
		})
	}
}

func TestFramePacer_EmptyInput(t *testing.T) {
	fp, sleeps := newTestPacer(t)
	sent, err := fp.Pace(context.Background(), nil, func([]byte) error {
		t.Fatal("send should not be called for empty input")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Zero(t, *sleeps)
}

func TestFramePacer_SleepsBetweenFramesOnly(t *testing.T) {
	fp, sleeps := newTestPacer(t)
	sent, err := fp.Pace(context.Background(), make([]byte, 960), func([]byte) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Equal(t, 2, *sleeps, "no sleep after the final frame")
}

func TestFramePacer_StopsBetweenFramesOnCancel(t *testing.T) {
	fp, _ := newTestPacer(t)
	ctx, cancel := context.WithCancel(context.Background())

	sent, err := fp.Pace(ctx, make([]byte, 1600), func([]byte) error {
		cancel() // hang-up while a frame is in flight
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sent, "emission must halt at the next frame boundary")
}

func TestFramePacer_SendErrorAborts(t *testing.T) {
	fp, _ := newTestPacer(t)
	sent, err := fp.Pace(context.Background(), make([]byte, 960), func([]byte) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, sent)
}
