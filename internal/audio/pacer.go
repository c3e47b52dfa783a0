// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_audio

import (
	"context"
	"time"

	"github.com/agriagents/voice-bridge/pkg/commons"
)

// FramePacer slices a LINEAR16 8 kHz reply buffer into 20 ms mu-law frames
// and hands them to a send callback, sleeping to real time between frames so
// the telephony provider never has to absorb a burst. Cancelling the context
// halts emission between frames; the frame in flight still completes.
type FramePacer struct {
	logger commons.Logger

	// sleep is injectable for testing; defaults to time.Sleep.
	sleep func(time.Duration)
}

func NewFramePacer(logger commons.Logger) *FramePacer {
	return &FramePacer{
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Pace emits ceil(len(pcm)/PCMFrameBytes) frames. The final frame may be
// shorter than 160 mu-law bytes. Returns the number of frames sent.
func (fp *FramePacer) Pace(ctx context.Context, pcm []byte, send func(mulaw []byte) error) (int, error) {
	sent := 0
	for off := 0; off < len(pcm); off += PCMFrameBytes {
		select {
		case <-ctx.Done():
			fp.logger.Debugf("pacer: stopped after %d frames, %d bytes unsent", sent, len(pcm)-off)
			return sent, ctx.Err()
		default:
		}

		end := off + PCMFrameBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := send(EncodeULaw(pcm[off:end])); err != nil {
			return sent, err
		}
		sent++

		if end < len(pcm) {
			fp.sleep(FrameMillis * time.Millisecond)
		}
	}
	return sent, nil
}
