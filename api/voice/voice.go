// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package voice_api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/agriagents/voice-bridge/config"
	internal_llm "github.com/agriagents/voice-bridge/internal/llm"
	internal_recorder "github.com/agriagents/voice-bridge/internal/recorder"
	internal_session "github.com/agriagents/voice-bridge/internal/session"
	internal_synthesize "github.com/agriagents/voice-bridge/internal/synthesize"
	internal_twilio_telephony "github.com/agriagents/voice-bridge/internal/telephony/twilio"
	internal_transcribe_sarvam "github.com/agriagents/voice-bridge/internal/transcribe/sarvam"
	"github.com/agriagents/voice-bridge/pkg/commons"
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// VoiceApi serves the Twilio-facing endpoints: the answer webhook that hands
// back the stream control document and the media-stream WebSocket itself.
// The LLM client and the TTS queue are shared across calls; everything else
// is per-session.
type VoiceApi struct {
	cfg    *config.AppConfig
	logger commons.Logger
	llm    internal_llm.Streamer
	tts    internal_session.Synthesizer
}

func NewVoiceApi(ctx context.Context, cfg *config.AppConfig, logger commons.Logger) (*VoiceApi, error) {
	llm, err := internal_llm.NewBedrockStreamer(ctx, logger, internal_llm.BedrockOptions{
		Region:      cfg.AwsRegion,
		ModelId:     cfg.BedrockModelId,
		DebugPrompt: cfg.DebugLLMPrompt,
	})
	if err != nil {
		return nil, err
	}
	provider := internal_synthesize.NewSarvamSynthesizer(logger, internal_synthesize.Options{
		Key: cfg.SarvamApiKey,
	})
	return &VoiceApi{
		cfg:    cfg,
		logger: logger,
		llm:    llm,
		tts:    internal_synthesize.NewQueue(logger, provider),
	}, nil
}

// IncomingCall answers Twilio's voice webhook with TwiML connecting the call
// to our bidirectional media stream.
//
// @Router /voice/incoming [post]
func (vApi *VoiceApi) IncomingCall(c *gin.Context) {
	doc, err := internal_twilio_telephony.ConnectStreamDocument(vApi.cfg.BaseURL)
	if err != nil {
		vApi.logger.Errorf("voice: unable to render control document: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to answer call"})
		return
	}
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, doc)
}

// StreamTalker upgrades the media-stream connection and drives the call to
// completion. The handler blocks for the lifetime of the call.
//
// @Router /voice/stream [get]
func (vApi *VoiceApi) StreamTalker(c *gin.Context) {
	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		vApi.logger.Errorf("voice: websocket upgrade failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to upgrade to websocket"})
		return
	}

	stt := internal_transcribe_sarvam.NewSession(vApi.logger, internal_transcribe_sarvam.Options{
		Key: vApi.cfg.SarvamApiKey,
	})
	recorder := internal_recorder.NewCallRecorder(vApi.logger, vApi.cfg.RecordingDir)

	session := internal_session.NewSession(vApi.logger, conn, stt, vApi.llm, vApi.tts, recorder)
	session.Run()
}

// Healthz reports process liveness.
func (vApi *VoiceApi) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": vApi.cfg.Name,
		"version": vApi.cfg.Version,
		"status":  "ok",
	})
}
