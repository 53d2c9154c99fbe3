package port

//go:generate mockgen -destination=mock/mock_generator.go -package=portmock world-forge-api/internal/workflow/port Generator

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// ChatModelFactory 定义工作流层对 LLM ChatModel 的最小依赖（port）。
type ChatModelFactory interface {
	// Get 返回配置中 provider 对应的共享实例
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
	// New 使用请求级凭证创建独立实例，不缓存
	New(ctx context.Context, name string, cred Credentials) (model.BaseChatModel, error)
}

// Credentials 请求级覆盖项，空字段沿用 provider 配置
type Credentials struct {
	APIKey string
	Model  string
}

// Generator 一次同步的文本生成调用：不重试、不缓存
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
