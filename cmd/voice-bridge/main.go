// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	voice_api "github.com/agriagents/voice-bridge/api/voice"
	"github.com/agriagents/voice-bridge/config"
	"github.com/agriagents/voice-bridge/pkg/commons"
	voice_routers "github.com/agriagents/voice-bridge/router"
)

func main() {
	vConfig, err := config.InitConfig()
	if err != nil {
		log.Fatalf("unable to initialize config: %v", err)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		log.Fatalf("unable to load application config: %v", err)
	}

	logger, err := commons.NewApplicationLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("unable to initialize logger: %v", err)
	}
	defer logger.Sync()

	vApi, err := voice_api.NewVoiceApi(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("unable to initialize voice api: %v", err)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}))
	voice_routers.VoiceRoutes(cfg, engine, logger, vApi)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	logger.Infof("%s %s listening on %s", cfg.Name, cfg.Version, addr)
	if err := engine.Run(addr); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
