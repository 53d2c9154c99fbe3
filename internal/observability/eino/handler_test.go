package eino

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmctx "world-forge-api/internal/domain/service"
)

type captureRecorder struct {
	inputs []llmctx.LLMUsageInput
	err    error
}

func (c *captureRecorder) Record(_ context.Context, in llmctx.LLMUsageInput) error {
	c.inputs = append(c.inputs, in)
	return c.err
}

func (c *captureRecorder) Usage(context.Context, string) (*llmctx.LLMUsage, error) {
	return &llmctx.LLMUsage{}, nil
}

func TestChatModelHandler_RecordsUsagePerSeed(t *testing.T) {
	rec := &captureRecorder{}
	h := newChatModelCallbackHandler(rec)

	ctx := llmctx.WithSeed(llmctx.WithWorkflowProvider(context.Background(), "world_build", "openai"), "seed-9")
	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "gpt-4o-mini"}})
	h.OnEnd(ctx, nil, &model.CallbackOutput{
		Config:     &model.Config{Model: "gpt-4o-mini"},
		TokenUsage: &model.TokenUsage{PromptTokens: 120, CompletionTokens: 40},
	})

	require.Len(t, rec.inputs, 1)
	got := rec.inputs[0]
	assert.Equal(t, "seed-9", got.SeedID)
	assert.Equal(t, "world_build", got.Workflow)
	assert.Equal(t, "openai", got.Provider)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 120, got.PromptTokens)
	assert.Equal(t, 40, got.CompletionTokens)
}

func TestChatModelHandler_SkipsWithoutSeed(t *testing.T) {
	rec := &captureRecorder{err: errors.New("ignored")}
	h := newChatModelCallbackHandler(rec)

	ctx := h.OnStart(context.Background(), nil, nil)
	h.OnEnd(ctx, nil, nil)
	h.OnError(ctx, nil, errors.New("boom"))

	assert.Empty(t, rec.inputs)
}

func TestChatModelHandler_NilRecorder(t *testing.T) {
	h := newChatModelCallbackHandler(nil)
	ctx := h.OnStart(llmctx.WithSeed(context.Background(), "seed-1"), nil, nil)
	assert.NotPanics(t, func() { h.OnEnd(ctx, nil, &model.CallbackOutput{}) })
}
