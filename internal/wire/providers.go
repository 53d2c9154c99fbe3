// Package wire 提供依赖注入配置
package wire

import (
	"github.com/KirkDiggler/rpg-toolkit/dice"

	"world-forge-api/internal/application/world"
	"world-forge-api/internal/config"
	"world-forge-api/internal/infrastructure/llm"
	"world-forge-api/internal/infrastructure/messaging"
	"world-forge-api/internal/infrastructure/persistence/postgres"
	"world-forge-api/internal/infrastructure/persistence/redis"
	"world-forge-api/internal/interfaces/http/handler"
	"world-forge-api/internal/interfaces/http/router"
	"world-forge-api/internal/workflow/chain"
	"world-forge-api/internal/workflow/prompt"
)

// App 入口进程需要的对象
type App struct {
	Router   *router.Router
	Postgres *postgres.Client
	Usage    *redis.UsageRecorder
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideUsageRecorder 用量保留时长与报告一致
func ProvideUsageRecorder(client *redis.Client, opts world.Options) *redis.UsageRecorder {
	return redis.NewUsageRecorder(client, opts.ReportTTL)
}

// ProvideWorldOptions 提供流水线参数
func ProvideWorldOptions(cfg *config.Config) world.Options {
	return world.OptionsFromConfig(&cfg.World)
}

// ProvidePromptRegistry 加载内置模板，配置了路径时叠加覆盖表
func ProvidePromptRegistry(cfg *config.Config) (*prompt.Registry, error) {
	return prompt.NewRegistry(cfg.World.TemplatesPath)
}

// ProvideBuildService 开启事件流时附带构建通知
func ProvideBuildService(
	cfg *config.Config,
	sessions *postgres.SessionFactory,
	reader *postgres.WorldRepository,
	factory *llm.EinoFactory,
	prompts *prompt.Registry,
	roller dice.Roller,
	cache *redis.Cache,
	usage *redis.UsageRecorder,
	opts world.Options,
	rc *redis.Client,
) *world.BuildService {
	svc := world.NewBuildService(sessions, reader, factory, prompts, roller, cache, usage, opts)
	stream := cfg.Messaging.RedisStream
	if stream.Enabled {
		svc.WithNotifier(messaging.NewProducer(rc.Redis(), stream.Stream, int64(stream.MaxLen)))
	}
	return svc
}

// ProvideRoller 提供默认骰子
func ProvideRoller() dice.Roller {
	return dice.DefaultRoller
}

func ProvideEinoFactory(cfg *config.Config) *llm.EinoFactory {
	return llm.NewEinoFactory(cfg)
}

func ProvideKeyVerifier(factory *llm.EinoFactory, cfg *config.Config) *chain.KeyVerifier {
	return chain.NewKeyVerifier(factory, cfg.LLM.VerifyModel)
}

// ProvideHealthHandler 就绪检查依赖 postgres 与 redis
func ProvideHealthHandler(pg *postgres.Client, rc *redis.Client, cfg *config.Config) *handler.HealthHandler {
	return handler.NewHealthHandler(pg, rc, cfg.App.Version)
}

// ProvideRouter 组装路由器
func ProvideRouter(cfg *config.Config, h router.Handlers, limiter *redis.RateLimiter) *router.Router {
	return router.New(cfg, h, limiter)
}
