// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_synthesize

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/go-resty/resty/v2"

	internal_audio "github.com/agriagents/voice-bridge/internal/audio"
	"github.com/agriagents/voice-bridge/pkg/commons"
)

const (
	SARVAM_TTS_URL = "https://api.sarvam.ai/text-to-speech"
	MODEL          = "bulbul:v2"
	SPEAKER        = "anushka"
)

// Provider turns a text segment into PCM16LE audio at the telephony sample
// rate. Implementations talk to one upstream vendor.
type Provider interface {
	Synthesize(ctx context.Context, text string, language string) ([]byte, error)
}

// Options configures the Sarvam speech client. URL is overridable for tests.
type Options struct {
	Key     string
	Speaker string
	Model   string
	URL     string
}

type sarvamSynthesizer struct {
	logger commons.Logger
	client *resty.Client
	opts   Options
}

// NewSarvamSynthesizer builds a Provider over the Sarvam text-to-speech REST
// API.
func NewSarvamSynthesizer(logger commons.Logger, opts Options) Provider {
	if opts.URL == "" {
		opts.URL = SARVAM_TTS_URL
	}
	if opts.Speaker == "" {
		opts.Speaker = SPEAKER
	}
	if opts.Model == "" {
		opts.Model = MODEL
	}
	return &sarvamSynthesizer{
		logger: logger,
		client: resty.New(),
		opts:   opts,
	}
}

type speechRequest struct {
	Text               string `json:"text"`
	TargetLanguageCode string `json:"target_language_code"`
	Speaker            string `json:"speaker"`
	Model              string `json:"model"`
	OutputAudioCodec   string `json:"output_audio_codec"`
	SpeechSampleRate   int    `json:"speech_sample_rate"`
}

type speechResponse struct {
	RequestId string   `json:"request_id"`
	Audios    []string `json:"audios"`
}

// Synthesize implements Provider. The response carries one base64 audio blob
// per input text; we send one text so only the first blob matters.
func (ss *sarvamSynthesizer) Synthesize(ctx context.Context, text string, language string) ([]byte, error) {
	var result speechResponse
	resp, err := ss.client.R().
		SetContext(ctx).
		SetHeader("api-subscription-key", ss.opts.Key).
		SetHeader("Content-Type", "application/json").
		SetBody(&speechRequest{
			Text:               text,
			TargetLanguageCode: language,
			Speaker:            ss.opts.Speaker,
			Model:              ss.opts.Model,
			OutputAudioCodec:   "linear16",
			SpeechSampleRate:   internal_audio.SampleRate8k,
		}).
		SetResult(&result).
		Post(ss.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("sarvam-tts: request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("sarvam-tts: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Audios) == 0 {
		return nil, fmt.Errorf("sarvam-tts: empty audio response for request %s", result.RequestId)
	}

	pcm, err := base64.StdEncoding.DecodeString(result.Audios[0])
	if err != nil {
		return nil, fmt.Errorf("sarvam-tts: decode audio: %w", err)
	}
	ss.logger.Debugf("sarvam-tts: synthesized %d bytes for %d chars", len(pcm), len(text))
	return pcm, nil
}
