// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_llm

import "context"

// Role labels one side of the conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the per-call conversation history. Insertion order is
// significant and preserved by the session.
type Turn struct {
	Role Role
	Text string
}

// Streamer is the abstract chat-completion contract the orchestrator drives.
// Implementations stream text deltas through onDelta as they are generated
// and return the full reply. Cancelling ctx aborts the stream.
type Streamer interface {
	StreamChatCompletion(ctx context.Context, history []Turn, onDelta func(delta string) error) (string, error)
}

// SystemPrompt is the agricultural-advisor persona. Sent verbatim on every
// turn.
const SystemPrompt = `You are a helpful voice assistant for Indian farmers, speaking over a phone call.
Reply in the exact language the user speaks in.
Keep every reply to at most 2 short sentences. Never use lists or bullet points.
If information is missing, ask exactly one counter-question at a time.
If the query is out of scope or abusive, politely steer the caller back to farming topics.
If you are unsure of an answer, suggest calling the Kisan Call Center at 1800-180-1551.`
