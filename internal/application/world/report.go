package world

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"world-forge-api/pkg/logger"
	"world-forge-api/pkg/metrics"
	"world-forge-api/pkg/tracer"
)

// Status 阶段结果状态
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// StageResult 单个阶段的结果，序列化时 Details 与 status、message 平铺在同一层
type StageResult struct {
	Status  Status
	Message string
	Details map[string]any
}

func (s StageResult) flat() map[string]any {
	out := make(map[string]any, len(s.Details)+2)
	for k, v := range s.Details {
		out[k] = v
	}
	out["status"] = s.Status
	out["message"] = s.Message
	return out
}

// MarshalJSON 输出 {status, message, ...阶段字段}
func (s StageResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.flat())
}

// MarshalYAML 与 JSON 保持同一结构
func (s StageResult) MarshalYAML() (any, error) {
	return s.flat(), nil
}

// UnmarshalJSON 除 status、message 以外的键归入 Details
func (s *StageResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = StageResult{}
	if v, ok := raw["status"]; ok {
		if err := json.Unmarshal(v, &s.Status); err != nil {
			return fmt.Errorf("status: %w", err)
		}
		delete(raw, "status")
	}
	if v, ok := raw["message"]; ok {
		if err := json.Unmarshal(v, &s.Message); err != nil {
			return fmt.Errorf("message: %w", err)
		}
		delete(raw, "message")
	}
	for k, v := range raw {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		if s.Details == nil {
			s.Details = make(map[string]any, len(raw))
		}
		s.Details[k] = val
	}
	return nil
}

// Report 按阶段名汇总的结果
type Report map[string]StageResult

// Succeeded 是否全部阶段成功
func (r Report) Succeeded() bool {
	for _, res := range r {
		if res.Status != StatusSuccess {
			return false
		}
	}
	return len(r) > 0
}

// Failed 失败阶段名，按字母序
func (r Report) Failed() []string {
	var names []string
	for name, res := range r {
		if res.Status != StatusSuccess {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func success(msg string) StageResult {
	return StageResult{Status: StatusSuccess, Message: msg}
}

func failure(msg string) StageResult {
	return StageResult{Status: StatusFailure, Message: msg}
}

func failuref(format string, args ...any) StageResult {
	return failure(fmt.Sprintf(format, args...))
}

func (s StageResult) with(key string, value any) StageResult {
	if s.Details == nil {
		s.Details = make(map[string]any)
	}
	s.Details[key] = value
	return s
}

// guard 阶段边界：panic 转为失败结果，并上报阶段指标
func guard(ctx context.Context, stage string, fn func(ctx context.Context) StageResult) (res StageResult) {
	ctx = logger.WithContext(ctx, logger.StageKey, stage)
	ctx, span := tracer.Start(ctx, "world.stage",
		trace.WithAttributes(attribute.String("world.stage", stage)))
	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "stage panicked", fmt.Errorf("%v", p))
			res = failuref("unexpected error in %s: %v", stage, p)
		}
		span.SetAttributes(attribute.String("world.stage.status", string(res.Status)))
		if res.Status != StatusSuccess {
			tracer.RecordError(span, fmt.Errorf("%s", res.Message))
		}
		span.End()
		metrics.StageResultTotal.WithLabelValues(stage, string(res.Status)).Inc()
		if res.Status == StatusSuccess {
			logger.Info(ctx, "stage finished", "message", res.Message)
		} else {
			logger.Warn(ctx, "stage failed", "message", res.Message)
		}
	}()
	return fn(ctx)
}
