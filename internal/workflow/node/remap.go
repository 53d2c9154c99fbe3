package node

import (
	"context"
	"time"

	"world-forge-api/pkg/logger"
)

// DateLayout 模型输出中日期字段的格式
const DateLayout = "2006-01-02"

type fieldAlias struct {
	canonical string
	aliases   []string
}

// fieldAliases 规范字段及其可接受的别名，按顺序取第一个存在的别名
var fieldAliases = []fieldAlias{
	{"name", []string{"character_name", "name", "event_name"}},
	{"description", []string{"description", "event_description"}},
	{"type", []string{"type", "event_type", "relationship_type"}},
	{"role", []string{"role", "event_role", "character_role"}},
	{"date_of_birth", []string{"date_of_birth", "birth_date"}},
	{"race", []string{"race", "character_race"}},
	{"gender", []string{"gender", "character_gender"}},
	{"current_date_time", []string{"current_date_time", "current_datetime"}},
	{"attraction", []string{"attraction", "relationship_attraction", "character_attraction"}},
	{"respect", []string{"respect", "relationship_respect", "character_respect"}},
	{"trust", []string{"trust", "relationship_trust", "character_trust"}},
	{"familiarity", []string{"familiarity", "relationship_familiarity", "character_familiarity"}},
	{"anger", []string{"anger", "relationship_anger", "character_anger"}},
	{"fear", []string{"fear", "relationship_fear", "character_fear"}},
}

var dateFields = []string{"date_of_birth", "current_date_time"}

// remap 写入规范字段，原始键保持不变
func remap(ctx context.Context, obj map[string]any) Record {
	out := make(Record, len(obj)+len(fieldAliases))
	for k, v := range obj {
		out[k] = v
	}

	for _, fa := range fieldAliases {
		for _, alias := range fa.aliases {
			if v, ok := obj[alias]; ok {
				out[fa.canonical] = v
				break
			}
		}
	}

	if g, ok := out["gender"]; ok {
		out["gender"] = parseGender(g)
	}
	for _, key := range dateFields {
		if v, ok := out[key]; ok {
			out[key] = parseDate(ctx, key, v)
		}
	}
	return out
}

// parseGender "Male" -> true, "Female" -> false, 其他 -> nil
func parseGender(v any) any {
	switch v {
	case "Male":
		return true
	case "Female":
		return false
	default:
		return nil
	}
}

func parseDate(ctx context.Context, key string, v any) any {
	s, _ := v.(string)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		logger.Warn(ctx, "cannot parse date from model output", "field", key, "value", v)
		return nil
	}
	return t
}
