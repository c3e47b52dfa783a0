// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	bedrock_types "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/agriagents/voice-bridge/pkg/commons"
)

// Inference parameters tuned for short, deterministic voice replies.
const (
	maxTokens   = 180
	temperature = 0.2
	topP        = 0.7
)

// BedrockOptions configures the Bedrock chat driver.
type BedrockOptions struct {
	Region  string
	ModelId string
	// AccessKeyId/SecretAccessKey are optional; the default AWS credential
	// chain applies when they are empty.
	AccessKeyId     string
	SecretAccessKey string
	// DebugPrompt logs the full prompt for every turn.
	DebugPrompt bool
}

type bedrockStreamer struct {
	logger commons.Logger
	client *bedrockruntime.Client
	opts   BedrockOptions
}

// NewBedrockStreamer builds a Streamer over the Bedrock Converse streaming
// API.
func NewBedrockStreamer(ctx context.Context, logger commons.Logger, opts BedrockOptions) (Streamer, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyId != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyId, opts.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	return &bedrockStreamer{
		logger: logger,
		client: bedrockruntime.NewFromConfig(cfg),
		opts:   opts,
	}, nil
}

// StreamChatCompletion implements Streamer.
func (bs *bedrockStreamer) StreamChatCompletion(ctx context.Context, history []Turn, onDelta func(string) error) (string, error) {
	msgs := make([]bedrock_types.Message, 0, len(history))
	for _, turn := range history {
		role := bedrock_types.ConversationRoleUser
		if turn.Role == RoleAssistant {
			role = bedrock_types.ConversationRoleAssistant
		}
		msgs = append(msgs, bedrock_types.Message{
			Role: role,
			Content: []bedrock_types.ContentBlock{
				&bedrock_types.ContentBlockMemberText{Value: turn.Text},
			},
		})
	}

	if bs.opts.DebugPrompt {
		var sb strings.Builder
		for _, turn := range history {
			fmt.Fprintf(&sb, "[%s] %s\n", turn.Role, turn.Text)
		}
		bs.logger.Debugf("bedrock: prompt for %s:\n%s", bs.opts.ModelId, sb.String())
	}

	out, err := bs.client.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId:  aws.String(bs.opts.ModelId),
		Messages: msgs,
		System: []bedrock_types.SystemContentBlock{
			&bedrock_types.SystemContentBlockMemberText{Value: SystemPrompt},
		},
		InferenceConfig: &bedrock_types.InferenceConfiguration{
			MaxTokens:   aws.Int32(maxTokens),
			Temperature: aws.Float32(temperature),
			TopP:        aws.Float32(topP),
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: converse stream: %w", err)
	}

	stream := out.GetStream()
	defer stream.Close()

	var reply strings.Builder
	for event := range stream.Events() {
		switch v := event.(type) {
		case *bedrock_types.ConverseStreamOutputMemberContentBlockDelta:
			if delta, ok := v.Value.Delta.(*bedrock_types.ContentBlockDeltaMemberText); ok && delta.Value != "" {
				reply.WriteString(delta.Value)
				if err := onDelta(delta.Value); err != nil {
					return reply.String(), err
				}
			}
		}

		select {
		case <-ctx.Done():
			return reply.String(), ctx.Err()
		default:
		}
	}
	if err := stream.Err(); err != nil {
		return reply.String(), fmt.Errorf("bedrock: stream: %w", err)
	}
	return reply.String(), nil
}
