//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"world-forge-api/internal/application/world"
	"world-forge-api/internal/config"
	"world-forge-api/internal/domain/repository"
	"world-forge-api/internal/infrastructure/persistence/postgres"
	"world-forge-api/internal/infrastructure/persistence/redis"
	"world-forge-api/internal/interfaces/http/handler"
	"world-forge-api/internal/interfaces/http/router"
	"world-forge-api/internal/workflow/chain"
)

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewSessionFactory,
	postgres.NewWorldRepository,
	wire.Bind(new(repository.SessionFactory), new(*postgres.SessionFactory)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	ProvideUsageRecorder,
)

// WorldSet 世界构建提供者集合
var WorldSet = wire.NewSet(
	ProvideWorldOptions,
	ProvidePromptRegistry,
	ProvideRoller,
	ProvideEinoFactory,
	ProvideKeyVerifier,
	world.NewSeedService,
	ProvideBuildService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewWorldHandler,
	handler.NewLLMHandler,
	wire.Bind(new(handler.SeedCreator), new(*world.SeedService)),
	wire.Bind(new(handler.WorldBuilder), new(*world.BuildService)),
	wire.Bind(new(handler.KeyVerifier), new(*chain.KeyVerifier)),
	wire.Struct(new(router.Handlers), "*"),
	ProvideRouter,
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		WorldSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializePostgres 仅初始化 PostgreSQL（用于迁移）
func InitializePostgres(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	wire.Build(ProvidePostgresClient)
	return nil, nil, nil
}
