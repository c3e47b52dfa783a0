// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_assembler

import "strings"

// fillerSet holds acknowledgement words that carry nothing for the agent to
// answer. Matched case-insensitively with trailing punctuation stripped.
var fillerSet = map[string]struct{}{
	"okay": {}, "ok": {}, "hm": {}, "hmm": {}, "haan": {}, "han": {},
	"yes": {}, "no": {}, "right": {}, "aha": {}, "uh": {}, "um": {},
	"oh": {}, "sure": {}, "alright": {}, "good": {}, "fine": {},
	"thanks": {}, "thank you": {},
}

// Rejected reports whether an utterance should be dropped without an LLM
// call: too short to mean anything, or a bare filler acknowledgement.
func Rejected(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < MinUtteranceLength {
		return true
	}
	normalized := strings.ToLower(strings.TrimRight(trimmed, ".!?,;:"))
	_, filler := fillerSet[normalized]
	return filler
}
