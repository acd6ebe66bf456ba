package summarizer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverse) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	return f.out, f.err
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(120), OutputTokens: aws.Int32(40), TotalTokens: aws.Int32(160)},
	}
}

func TestBedrockClientComplete(t *testing.T) {
	api := &fakeConverse{out: textOutput("  ## Summary\nStable.  ")}
	client := NewBedrockClient(api, "anthropic.claude-3-haiku")

	resp, err := client.Complete(context.Background(), LLMRequest{System: []string{"be brief", " "}, Prompt: "summarize", MaxTokens: 512})
	require.NoError(t, err)
	assert.Equal(t, "## Summary\nStable.", resp.Text)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, int32(160), resp.Usage.TotalTokens)

	require.NotNil(t, api.input)
	assert.Equal(t, "anthropic.claude-3-haiku", aws.ToString(api.input.ModelId))
	assert.Len(t, api.input.System, 1)
	require.Len(t, api.input.Messages, 1)
	assert.Equal(t, brtypes.ConversationRoleUser, api.input.Messages[0].Role)
	require.NotNil(t, api.input.InferenceConfig)
	assert.Equal(t, int32(512), aws.ToInt32(api.input.InferenceConfig.MaxTokens))
	assert.Nil(t, api.input.InferenceConfig.Temperature)
}

func TestBedrockClientErrors(t *testing.T) {
	_, err := NewBedrockClient(&fakeConverse{}, "").Complete(context.Background(), LLMRequest{Prompt: "x"})
	require.Error(t, err)

	api := &fakeConverse{err: errors.New("throttled")}
	_, err = NewBedrockClient(api, "m").Complete(context.Background(), LLMRequest{Prompt: "x"})
	assert.EqualError(t, err, "throttled")

	api = &fakeConverse{out: &bedrockruntime.ConverseOutput{}}
	_, err = NewBedrockClient(api, "m").Complete(context.Background(), LLMRequest{Prompt: "x"})
	require.Error(t, err)
}

func TestBedrockClientEmptyReply(t *testing.T) {
	api := &fakeConverse{out: textOutput("")}
	resp, err := NewBedrockClient(api, "m").Complete(context.Background(), LLMRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Empty(t, resp.Text)
	assert.Nil(t, api.input.InferenceConfig)
}
