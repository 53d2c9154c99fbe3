package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "world-forge-api/internal/domain/service"
	workflowport "world-forge-api/internal/workflow/port"
)

// WorkflowWorldBuild 世界构建调用在指标与追踪中的工作流名称
const WorkflowWorldBuild = "world_build"

// GatewayOptions 单次构建使用的模型配置
type GatewayOptions struct {
	Provider string
	APIKey   string
	Model    string
	Workflow string
}

// WorldChain 实现 port.Generator：一条提示词进，模型文本出
type WorldChain struct {
	chatModel model.BaseChatModel
	opts      GatewayOptions

	chainOnce sync.Once
	chain     compose.Runnable[string, *schema.Message]
	chainErr  error
}

var _ workflowport.Generator = (*WorldChain)(nil)

// NewWorldChain 解析模型实例；请求带 APIKey 或 Model 时创建独立实例
func NewWorldChain(ctx context.Context, factory workflowport.ChatModelFactory, opts GatewayOptions) (*WorldChain, error) {
	if factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	opts.Provider = strings.TrimSpace(opts.Provider)
	if strings.TrimSpace(opts.Workflow) == "" {
		opts.Workflow = WorkflowWorldBuild
	}

	var (
		chatModel model.BaseChatModel
		err       error
	)
	if strings.TrimSpace(opts.APIKey) != "" || strings.TrimSpace(opts.Model) != "" {
		chatModel, err = factory.New(ctx, opts.Provider, workflowport.Credentials{APIKey: opts.APIKey, Model: opts.Model})
	} else {
		chatModel, err = factory.Get(ctx, opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	return &WorldChain{chatModel: chatModel, opts: opts}, nil
}

// Generate 单次同步调用，错误原样返回
func (c *WorldChain) Generate(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.chatModel == nil {
		return "", fmt.Errorf("chat model not configured")
	}
	chain, err := c.getChain()
	if err != nil {
		return "", err
	}

	ctx = llmctx.WithWorkflowProvider(ctx, c.opts.Workflow, c.opts.Provider)
	out, err := chain.Invoke(ctx, prompt)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

type worldChainState struct {
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *WorldChain) getChain() (compose.Runnable[string, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *WorldChain) buildChain(ctx context.Context) (compose.Runnable[string, *schema.Message], error) {
	chain := compose.NewChain[string, *schema.Message]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, prompt string) (*worldChainState, error) {
			if strings.TrimSpace(prompt) == "" {
				return nil, fmt.Errorf("prompt is empty")
			}
			return &worldChainState{Messages: []*schema.Message{schema.UserMessage(prompt)}}, nil
		}),
		compose.WithNodeName("world.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *worldChainState) (*worldChainState, error) {
			outMsg, err := c.chatModel.Generate(ctx, st.Messages)
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("world.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *worldChainState) (*schema.Message, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return st.OutMsg, nil
		}),
		compose.WithNodeName("world.finalize"),
	)

	return chain.Compile(ctx)
}
