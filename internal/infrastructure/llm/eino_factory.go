package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"world-forge-api/internal/config"
	"world-forge-api/internal/workflow/port"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// ErrMissingAPIKey provider 配置与请求都没有提供凭证
var ErrMissingAPIKey = errors.New("llm api key is missing")

// EinoFactory 管理多个 Eino ChatModel 客户端实例
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.BaseChatModel
	mu     sync.RWMutex
}

var _ port.ChatModelFactory = (*EinoFactory)(nil)

// NewEinoFactory 创建 Eino LLM 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.BaseChatModel),
	}
}

// Get 获取指定名称的 ChatModel，如果未指定则返回默认客户端
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	name = f.resolveName(name)

	f.mu.RLock()
	m, ok := f.models[name]
	f.mu.RUnlock()
	if ok {
		return m, nil
	}

	// 惰性加载
	f.mu.Lock()
	defer f.mu.Unlock()

	// 再次检查防止竞态
	if m, ok = f.models[name]; ok {
		return m, nil
	}

	providerCfg, err := f.provider(name)
	if err != nil {
		return nil, err
	}
	chatModel, err := newChatModel(ctx, name, providerCfg)
	if err != nil {
		return nil, err
	}

	f.models[name] = chatModel
	return chatModel, nil
}

// New 以请求级凭证创建 ChatModel，不进入缓存
func (f *EinoFactory) New(ctx context.Context, name string, cred port.Credentials) (model.BaseChatModel, error) {
	name = f.resolveName(name)
	providerCfg, err := f.provider(name)
	if err != nil {
		return nil, err
	}
	if key := strings.TrimSpace(cred.APIKey); key != "" {
		providerCfg.APIKey = key
	}
	if m := strings.TrimSpace(cred.Model); m != "" {
		providerCfg.Model = m
	}
	return newChatModel(ctx, name, providerCfg)
}

// Default 返回默认 ChatModel
func (f *EinoFactory) Default(ctx context.Context) (model.BaseChatModel, error) {
	return f.Get(ctx, "")
}

// DefaultProvider 返回配置中的默认 provider 名称
func (f *EinoFactory) DefaultProvider() string {
	return f.config.DefaultProvider
}

func (f *EinoFactory) resolveName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return f.config.DefaultProvider
	}
	return name
}

func (f *EinoFactory) provider(name string) (config.ProviderConfig, error) {
	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return config.ProviderConfig{}, fmt.Errorf("provider %s not found in LLM config", name)
	}
	return providerCfg, nil
}

func newChatModel(ctx context.Context, name string, providerCfg config.ProviderConfig) (model.BaseChatModel, error) {
	if strings.TrimSpace(providerCfg.APIKey) == "" {
		return nil, fmt.Errorf("provider %s: %w", name, ErrMissingAPIKey)
	}

	cfg := &openai.ChatModelConfig{
		APIKey:      providerCfg.APIKey,
		BaseURL:     providerCfg.BaseURL,
		Model:       providerCfg.Model,
		Temperature: ptrFloat32(float32(providerCfg.Temperature)),
		Timeout:     providerCfg.Timeout,
	}
	if providerCfg.MaxTokens > 0 {
		cfg.MaxTokens = &providerCfg.MaxTokens
	}

	// 使用 Eino 的 OpenAI 适配器
	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model for %s: %w", name, err)
	}
	return chatModel, nil
}

func ptrFloat32(f float32) *float32 {
	return &f
}
