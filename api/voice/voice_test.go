// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package voice_api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/agriagents/voice-bridge/config"
	"github.com/agriagents/voice-bridge/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T) *VoiceApi {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	return &VoiceApi{
		cfg: &config.AppConfig{
			Name:    "agri-agents-voice-bridge",
			Version: "0.0.1",
			BaseURL: "bridge.example.com",
		},
		logger: logger,
	}
}

func TestIncomingCall_RespondsWithStreamDocument(t *testing.T) {
	vApi := newTestApi(t)
	engine := gin.New()
	engine.POST("/voice/incoming", vApi.IncomingCall)

	req := httptest.NewRequest(http.MethodPost, "/voice/incoming",
		strings.NewReader("CallSid=CAxyz&From=%2B911234567890"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/xml")
	body := w.Body.String()
	assert.Contains(t, body, "<Connect>")
	assert.Contains(t, body, `<Stream url="wss://bridge.example.com/voice/stream"`)
}

func TestHealthz(t *testing.T) {
	vApi := newTestApi(t)
	engine := gin.New()
	engine.GET("/healthz", vApi.Healthz)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "agri-agents-voice-bridge", payload["service"])
	assert.Equal(t, "0.0.1", payload["version"])
	assert.Equal(t, "ok", payload["status"])
}
