// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_llm

import (
	"regexp"
	"strings"
)

// Segment sizing. A sentence boundary within maxSegmentWords wins; otherwise
// the first maxSegmentWords go out so TTS never waits on a rambling
// sentence. Anything under minSegmentWords synthesises badly and is dropped.
const (
	minSegmentWords = 5
	maxSegmentWords = 15
)

// sentenceBoundary matches the first complete sentence: anything up to
// terminal punctuation followed by whitespace.
var sentenceBoundary = regexp.MustCompile(`(?s)^(.+?[.!?])\s+`)

// Segmenter incrementally slices a streaming LLM reply into TTS-sized
// fragments so synthesis overlaps token arrival. Not safe for concurrent
// use; the turn driver owns it.
type Segmenter struct {
	buf  string
	full strings.Builder

	emitted int
}

// Push appends a text delta and returns the segments it completed, in
// reading order.
func (sg *Segmenter) Push(delta string) []string {
	sg.buf += delta
	sg.full.WriteString(delta)

	var out []string
	for {
		if m := sentenceBoundary.FindStringSubmatch(sg.buf); m != nil {
			sg.buf = sg.buf[len(m[0]):]
			out = sg.emit(out, strings.TrimSpace(m[1]))
			continue
		}

		words := strings.Fields(sg.buf)
		if len(words) >= maxSegmentWords {
			out = sg.emit(out, strings.Join(words[:maxSegmentWords], " "))
			sg.buf = strings.Join(words[maxSegmentWords:], " ")
			continue
		}
		break
	}
	return out
}

// Finish flushes the tail of the reply. If the whole reply never produced a
// single segment (a short answer like "Yes, do that."), the reply itself is
// emitted so the caller still hears something.
func (sg *Segmenter) Finish() []string {
	var out []string
	if tail := strings.TrimSpace(sg.buf); tail != "" {
		out = sg.emit(out, tail)
	}
	sg.buf = ""

	if sg.emitted == 0 {
		if full := strings.TrimSpace(sg.full.String()); full != "" {
			out = append(out, full)
			sg.emitted++
		}
	}
	return out
}

// emit applies the minimum-length gate and tracks how many segments made it
// through.
func (sg *Segmenter) emit(out []string, candidate string) []string {
	if len(strings.Fields(candidate)) < minSegmentWords {
		return out
	}
	sg.emitted++
	return append(out, candidate)
}
