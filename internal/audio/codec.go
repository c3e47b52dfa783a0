// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_audio

import (
	"bytes"
	"encoding/binary"

	"github.com/zaf/g711"
)

// Telephony audio geometry. Twilio Media Streams deliver mu-law mono at
// 8 kHz in 20 ms frames; linear PCM is 16-bit little-endian throughout.
const (
	SampleRate8k  = 8000
	SampleRate16k = 16000

	BytesPerSample = 2  // LINEAR16 → 2 bytes per sample
	BitsPerSample  = 16 // LINEAR16 → 16 bits per sample
	PCMFormat      = 1  // WAV PCM format tag

	FrameMillis    = 20
	PCMFrameBytes  = SampleRate8k * BytesPerSample * FrameMillis / 1000 // 320
	ULawFrameBytes = SampleRate8k * FrameMillis / 1000                  // 160
)

// PCMBytesPerMillisecond returns the LINEAR16 byte rate for a sample rate.
func PCMBytesPerMillisecond(sampleRate int) int {
	return sampleRate * BytesPerSample / 1000
}

// DecodeULaw expands G.711 mu-law bytes to LINEAR16 little-endian samples.
func DecodeULaw(in []byte) []byte {
	return g711.DecodeUlaw(in)
}

// EncodeULaw compands LINEAR16 little-endian samples to G.711 mu-law.
// A trailing odd byte is dropped; it cannot form a sample.
func EncodeULaw(pcm []byte) []byte {
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}
	return g711.EncodeUlaw(pcm)
}

// Upsample8kTo16k doubles the sample rate by zero-order hold: every 8 kHz
// sample is written twice. Cheapest possible resampler; the high-frequency
// images it introduces are inaudible over a telephony band.
func Upsample8kTo16k(pcm []byte) []byte {
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}
	out := make([]byte, 0, len(pcm)*2)
	for i := 0; i+1 < len(pcm); i += 2 {
		out = append(out, pcm[i], pcm[i+1], pcm[i], pcm[i+1])
	}
	return out
}

// WrapWAV prefixes LINEAR16 samples with a canonical 44-byte RIFF/WAVE
// header. All integers little-endian.
func WrapWAV(pcm []byte, sampleRate int, channels int) []byte {
	var buf bytes.Buffer
	byteRate := sampleRate * channels * BytesPerSample
	blockAlign := channels * BytesPerSample

	buf.Write([]byte("RIFF"))
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.Write([]byte("WAVE"))

	buf.Write([]byte("fmt "))
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(PCMFormat))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(BitsPerSample))

	// data chunk
	buf.Write([]byte("data"))
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
