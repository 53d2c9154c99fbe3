package redis

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	llmctx "world-forge-api/internal/domain/service"
)

const usageKeyPrefix = "world:usage:"

// UsageRecorder 按 seed 累计模型调用次数与 token
type UsageRecorder struct {
	client *Client
	ttl    time.Duration
}

var _ llmctx.LLMUsageRecorder = (*UsageRecorder)(nil)

func NewUsageRecorder(client *Client, ttl time.Duration) *UsageRecorder {
	return &UsageRecorder{client: client, ttl: ttl}
}

func (r *UsageRecorder) Record(ctx context.Context, in llmctx.LLMUsageInput) error {
	key := usageKeyPrefix + in.SeedID
	ctx, span := tracer.Start(ctx, "usage.Record",
		trace.WithAttributes(attribute.String("redis.key", key)))
	defer span.End()

	pipe := r.client.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, "calls", 1)
	pipe.HIncrBy(ctx, key, "prompt_tokens", int64(in.PromptTokens))
	pipe.HIncrBy(ctx, key, "completion_tokens", int64(in.CompletionTokens))
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// Usage 没有记录时返回零值
func (r *UsageRecorder) Usage(ctx context.Context, seedID string) (*llmctx.LLMUsage, error) {
	key := usageKeyPrefix + seedID
	ctx, span := tracer.Start(ctx, "usage.Get",
		trace.WithAttributes(attribute.String("redis.key", key)))
	defer span.End()

	var out llmctx.LLMUsage
	if err := r.client.rdb.HGetAll(ctx, key).Scan(&out); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}
	return &out, nil
}
