// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package voice_routers

import (
	"github.com/gin-gonic/gin"

	voice_api "github.com/agriagents/voice-bridge/api/voice"
	"github.com/agriagents/voice-bridge/config"
	internal_twilio_telephony "github.com/agriagents/voice-bridge/internal/telephony/twilio"
	"github.com/agriagents/voice-bridge/pkg/commons"
)

func VoiceRoutes(cfg *config.AppConfig, engine *gin.Engine, logger commons.Logger, vApi *voice_api.VoiceApi) {
	logger.Info("Voice routes added to engine.")
	apiv1 := engine.Group("")
	{
		// for incoming call answering
		apiv1.POST("/voice/incoming", vApi.IncomingCall)
		apiv1.GET(internal_twilio_telephony.StreamPath, vApi.StreamTalker)
		apiv1.GET("/healthz", vApi.Healthz)
	}
}
