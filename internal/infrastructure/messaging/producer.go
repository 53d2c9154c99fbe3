// Package messaging 通过 Redis Stream 发布世界构建事件
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"world-forge-api/internal/application/world"
)

var tracer = otel.Tracer("messaging")

// DefaultStream 构建完成事件流
const DefaultStream = "stream:world:built"

// TypeWorldBuilt 事件类型
const TypeWorldBuilt = "world_built"

// Message 消息结构
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	SeedID    string          `json:"seed_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// WorldBuiltPayload 构建完成事件载荷
type WorldBuiltPayload struct {
	Succeeded bool         `json:"succeeded"`
	Failed    []string     `json:"failed_stages,omitempty"`
	Report    world.Report `json:"report"`
}

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, stream string, maxLen int64) *Producer {
	if stream == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &Producer{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Publish 发布消息
func (p *Producer) Publish(ctx context.Context, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", p.stream),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// WorldBuilt 实现 world.BuildNotifier
func (p *Producer) WorldBuilt(ctx context.Context, out *world.BuildOutcome) error {
	payload, err := json.Marshal(WorldBuiltPayload{
		Succeeded: out.Report.Succeeded(),
		Failed:    out.Report.Failed(),
		Report:    out.Report,
	})
	if err != nil {
		return err
	}

	_, err = p.Publish(ctx, &Message{
		ID:        uuid.NewString(),
		Type:      TypeWorldBuilt,
		SeedID:    out.SeedID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	})
	return err
}
