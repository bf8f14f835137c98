package inference

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// BedrockConverseAPI is the subset of the Bedrock runtime client used here.
type BedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockInvoker invokes a model through the Bedrock Converse API.
type BedrockInvoker struct {
	api       BedrockConverseAPI
	modelID   string
	maxTokens int32
}

// NewBedrockInvoker creates a Bedrock-backed invoker.
func NewBedrockInvoker(api BedrockConverseAPI, modelID string) (*BedrockInvoker, error) {
	if api == nil {
		return nil, errors.New("inference: bedrock client is required")
	}
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("inference: bedrock model id is required")
	}
	return &BedrockInvoker{api: api, modelID: modelID, maxTokens: 1024}, nil
}

// Invoke sends the exchange as a single-turn conversation and returns the
// model's text output.
func (b *BedrockInvoker) Invoke(ctx context.Context, userInput, systemInstructions string) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: systemInstructions},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: userInput},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens: aws.Int32(b.maxTokens),
		},
	}

	out, err := b.api.Converse(ctx, input)
	if err != nil {
		return "", err
	}

	text := extractConverseText(out)
	if text == "" {
		return "", errors.New("inference: bedrock returned no text content")
	}
	return text, nil
}

func extractConverseText(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	return strings.TrimSpace(sb.String())
}
