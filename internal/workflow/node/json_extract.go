package node

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"world-forge-api/pkg/logger"
)

// ErrExtraction 模型输出中没有可用的结构化数据
var ErrExtraction = errors.New("no structured data in model output")

// Record 模型输出解析得到的单个对象（已完成字段重映射）
type Record map[string]any

// ExtractObject 从模型输出中截取第一个 '{' 到最后一个 '}' 并解析为对象。
// nestedKey 存在时先下钻一层。任何失败都返回 nil。
func ExtractObject(ctx context.Context, text, nestedKey string) Record {
	v, ok := parseSpan(ctx, text, '{', '}')
	if !ok {
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	if nestedKey != "" {
		if inner, found := obj[nestedKey]; found {
			if obj, ok = inner.(map[string]any); !ok {
				logger.Debug(ctx, "nested value is not an object", "nested_key", nestedKey)
				return nil
			}
		}
	}
	return remap(ctx, obj)
}

// ExtractList 从模型输出中截取第一个 '[' 到最后一个 ']' 并解析为对象数组。
// 数组中任一元素不是对象即视为失败，返回 nil。
func ExtractList(ctx context.Context, text, nestedKey string) []Record {
	v, ok := parseSpan(ctx, text, '[', ']')
	if !ok {
		return nil
	}
	if obj, isObj := v.(map[string]any); isObj && nestedKey != "" {
		v = obj[nestedKey]
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]Record, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			logger.Debug(ctx, "list element is not an object")
			return nil
		}
		out = append(out, remap(ctx, obj))
	}
	return out
}

// parseSpan 截取 open..close 之间的文本（容忍 JSON 前后夹杂的说明文字）并严格解析
func parseSpan(ctx context.Context, text string, open, close byte) (any, bool) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		logger.Debug(ctx, "json delimiters not found in model output", "open", string(open))
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(text[start : end+1]))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		logger.Debug(ctx, "failed to parse model output as json", "error", err.Error())
		return nil, false
	}
	// 截取范围内只能有一个 JSON 值
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		logger.Debug(ctx, "trailing data after json value in model output")
		return nil, false
	}
	return v, true
}
