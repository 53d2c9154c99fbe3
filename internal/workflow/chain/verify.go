package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	llmctx "world-forge-api/internal/domain/service"
	wfnode "world-forge-api/internal/workflow/node"
	workflowport "world-forge-api/internal/workflow/port"
)

const (
	verifySystemPrompt = "You are a helpful assistant."
	verifyUserPrompt   = "Hello!"
)

// KeyVerification 凭证校验结果
type KeyVerification struct {
	Valid   bool
	Message string
}

// KeyVerifier 用一次最小调用校验 API Key
type KeyVerifier struct {
	factory workflowport.ChatModelFactory
	model   string
}

func NewKeyVerifier(factory workflowport.ChatModelFactory, model string) *KeyVerifier {
	return &KeyVerifier{factory: factory, model: strings.TrimSpace(model)}
}

// Verify 凭证被拒绝时返回 Valid=false；其他调用错误直接返回 error
func (v *KeyVerifier) Verify(ctx context.Context, provider, apiKey string) (*KeyVerification, error) {
	if strings.TrimSpace(apiKey) == "" {
		return &KeyVerification{Valid: false, Message: "api key is empty"}, nil
	}

	chatModel, err := v.factory.New(ctx, provider, workflowport.Credentials{APIKey: apiKey, Model: v.model})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	ctx = llmctx.WithWorkflowProvider(ctx, "verify_key", provider)
	out, err := chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(verifySystemPrompt),
		schema.UserMessage(verifyUserPrompt),
	})
	if err != nil {
		if wfnode.IsAuthenticationError(err) {
			return &KeyVerification{Valid: false, Message: "api key was rejected by the provider"}, nil
		}
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("empty llm response")
	}
	return &KeyVerification{Valid: true, Message: "api key is valid"}, nil
}
