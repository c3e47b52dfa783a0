// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_recorder

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/agriagents/voice-bridge/pkg/commons"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) (*CallRecorder, string) {
	t.Helper()
	logger, err := commons.NewApplicationLogger()
	require.NoError(t, err)
	dir := t.TempDir()
	return NewCallRecorder(logger, dir), dir
}

func TestCallRecorder_CaptureAndFinalize(t *testing.T) {
	r, dir := newTestRecorder(t)
	r.Begin("CAxyz")

	require.NoError(t, r.Write([]byte{0xff, 0xff, 0x7f, 0x7f}))
	require.NoError(t, r.Write([]byte{0xff, 0xff}))

	wavPath, err := r.Finalize()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "CAxyz.wav"), wavPath)

	wav, err := os.ReadFile(wavPath)
	require.NoError(t, err)
	require.Len(t, wav, 44+12, "6 mu-law bytes decode to 12 PCM bytes")
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(12), binary.LittleEndian.Uint32(wav[40:44]))

	_, err = os.Stat(filepath.Join(dir, "CAxyz.ulaw"))
	assert.True(t, os.IsNotExist(err), "raw capture must be deleted on success")
}

func TestCallRecorder_MediaBeforeStart(t *testing.T) {
	r, dir := newTestRecorder(t)

	// Media arrives before the provider start message names the call.
	require.NoError(t, r.Write([]byte{0xff, 0xff}))
	r.Begin("CAlate")

	wavPath, err := r.Finalize()
	require.NoError(t, err)
	assert.NotEmpty(t, wavPath)
	// The anonymous capture keeps its generated name.
	assert.NotEqual(t, filepath.Join(dir, "CAlate.wav"), wavPath)
}

func TestCallRecorder_FinalizeWithoutMedia(t *testing.T) {
	r, _ := newTestRecorder(t)
	r.Begin("CAempty")

	wavPath, err := r.Finalize()
	require.NoError(t, err)
	assert.Empty(t, wavPath, "no capture file without media")
}

func TestCallRecorder_FinalizeIdempotent(t *testing.T) {
	r, _ := newTestRecorder(t)
	require.NoError(t, r.Write([]byte{0xff, 0xff}))

	first, err := r.Finalize()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := r.Finalize()
	require.NoError(t, err)
	assert.Empty(t, second)

	// Writes after finalize are silently dropped.
	assert.NoError(t, r.Write([]byte{0xff}))
}
