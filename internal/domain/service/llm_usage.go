package service

import "context"

// LLMUsageInput 表示一次 LLM 调用的可观测数据。
type LLMUsageInput struct {
	SeedID string

	Workflow string
	Provider string
	Model    string

	PromptTokens     int
	CompletionTokens int
	DurationMs       int
}

// LLMUsage 某个 seed 累计的模型用量
type LLMUsage struct {
	Calls            int64 `json:"calls" redis:"calls"`
	PromptTokens     int64 `json:"prompt_tokens" redis:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens" redis:"completion_tokens"`
}

// LLMUsageRecorder 负责按 seed 归集 LLM 用量。
// 实现应为 best-effort，不阻塞生成流程。
type LLMUsageRecorder interface {
	Record(ctx context.Context, in LLMUsageInput) error
	Usage(ctx context.Context, seedID string) (*LLMUsage, error)
}
