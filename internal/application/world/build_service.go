package world

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"world-forge-api/internal/config"
	"world-forge-api/internal/domain/entity"
	"world-forge-api/internal/domain/repository"
	llmctx "world-forge-api/internal/domain/service"
	rediscache "world-forge-api/internal/infrastructure/persistence/redis"
	"world-forge-api/internal/workflow/chain"
	"world-forge-api/internal/workflow/port"
	apperrors "world-forge-api/pkg/errors"
	"world-forge-api/pkg/logger"
)

// DefaultReportTTL 构建报告与世界视图的缓存时长
const DefaultReportTTL = 24 * time.Hour

// Options 流水线参数
type Options struct {
	MaxAttempts          int
	MaxRelationshipPairs int
	ReportTTL            time.Duration
}

// OptionsFromConfig 未配置的项使用默认值
func OptionsFromConfig(cfg *config.WorldConfig) Options {
	opts := Options{
		MaxAttempts:          DefaultMaxAttempts,
		MaxRelationshipPairs: DefaultMaxRelationshipPairs,
		ReportTTL:            DefaultReportTTL,
	}
	if cfg == nil {
		return opts
	}
	if cfg.MaxAttempts > 0 {
		opts.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.MaxRelationshipPairs > 0 {
		opts.MaxRelationshipPairs = cfg.MaxRelationshipPairs
	}
	if cfg.ReportTTL > 0 {
		opts.ReportTTL = cfg.ReportTTL
	}
	return opts
}

// BuildRequest 一次世界构建的输入
type BuildRequest struct {
	SeedID   string
	SeedData string
	Provider string
	APIKey   string
	Model    string
}

// BuildOutcome 构建结果；Report 中部分阶段失败不视为错误
type BuildOutcome struct {
	SeedID string           `json:"seed_id"`
	Report Report           `json:"report"`
	Usage  *llmctx.LLMUsage `json:"usage,omitempty"`
}

// WorldView 已提交的世界数据
type WorldView struct {
	Seed       *entity.Seed        `json:"seed"`
	Characters []*entity.Character `json:"characters"`
	Locations  []*entity.Location  `json:"locations"`
	Events     []*entity.Event     `json:"events"`
}

// BuildNotifier 构建完成后的通知
type BuildNotifier interface {
	WorldBuilt(ctx context.Context, out *BuildOutcome) error
}

// BuildService 世界构建入口：打开会话、构造网关、执行编排并缓存报告
type BuildService struct {
	sessions repository.SessionFactory
	reader   repository.WorldReader
	models   port.ChatModelFactory
	prompts  PromptRenderer
	roller   dice.Roller
	cache    *rediscache.Cache
	usage    llmctx.LLMUsageRecorder
	notifier BuildNotifier
	opts     Options
	now      func() time.Time
}

// NewBuildService cache 与 usage 可以为 nil
func NewBuildService(
	sessions repository.SessionFactory,
	reader repository.WorldReader,
	models port.ChatModelFactory,
	prompts PromptRenderer,
	roller dice.Roller,
	cache *rediscache.Cache,
	usage llmctx.LLMUsageRecorder,
	opts Options,
) *BuildService {
	if roller == nil {
		roller = dice.DefaultRoller
	}
	return &BuildService{
		sessions: sessions,
		reader:   reader,
		models:   models,
		prompts:  prompts,
		roller:   roller,
		cache:    cache,
		usage:    usage,
		opts:     opts,
		now:      time.Now,
	}
}

// WithNotifier 设置构建完成通知，通知失败不影响构建结果
func (s *BuildService) WithNotifier(n BuildNotifier) *BuildService {
	s.notifier = n
	return s
}

// Build 执行一次世界构建。仅在种子不存在、网关无法构造或会话无法打开时返回错误
func (s *BuildService) Build(ctx context.Context, req BuildRequest) (*BuildOutcome, error) {
	if strings.TrimSpace(req.SeedID) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("seed_id is required")
	}
	if _, err := s.reader.GetSeed(ctx, req.SeedID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrSeedNotFound
		}
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load seed")
	}

	ctx = llmctx.WithSeed(ctx, req.SeedID)
	ctx = logger.WithContext(ctx, logger.SeedIDKey, req.SeedID)

	gen, err := chain.NewWorldChain(ctx, s.models, chain.GatewayOptions{
		Provider: req.Provider,
		APIKey:   req.APIKey,
		Model:    req.Model,
		Workflow: chain.WorkflowWorldBuild,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to construct llm gateway")
	}

	sess, err := s.sessions.Open(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to open session")
	}
	defer closeSession(ctx, sess)

	env := &Env{
		SeedID:               req.SeedID,
		SeedData:             req.SeedData,
		Runner:               NewRunner(sess, s.opts.MaxAttempts),
		Gen:                  gen,
		Prompts:              s.prompts,
		Roller:               s.roller,
		Now:                  s.now,
		MaxRelationshipPairs: s.opts.MaxRelationshipPairs,
	}
	report := NewOrchestrator(env).Build(ctx)
	s.storeReport(ctx, req.SeedID, report)

	out := &BuildOutcome{SeedID: req.SeedID, Report: report}
	if s.usage != nil {
		usage, err := s.usage.Usage(ctx, req.SeedID)
		if err != nil {
			logger.Warn(ctx, "failed to load llm usage", "error", err.Error())
		} else {
			out.Usage = usage
		}
	}
	if s.notifier != nil {
		if err := s.notifier.WorldBuilt(ctx, out); err != nil {
			logger.Warn(ctx, "failed to publish build event", "error", err.Error())
		}
	}
	return out, nil
}

// Report 返回最近一次构建的报告
func (s *BuildService) Report(ctx context.Context, seedID string) (Report, error) {
	if s.cache == nil {
		return nil, apperrors.ErrReportNotFound
	}
	raw, err := s.cache.Get(ctx, rediscache.ReportKey(seedID))
	if err != nil {
		if rediscache.IsNil(err) {
			return nil, apperrors.ErrReportNotFound
		}
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to read report")
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to decode report")
	}
	return report, nil
}

// World 返回种子的已提交世界数据，有缓存时走 singleflight
func (s *BuildService) World(ctx context.Context, seedID string) (*WorldView, error) {
	if s.cache == nil {
		return s.loadWorld(ctx, seedID)
	}

	raw, err := s.cache.GetOrLoadSafe(ctx, rediscache.ViewKey(seedID), s.opts.ReportTTL, func() (any, error) {
		return s.loadWorld(ctx, seedID)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load world view")
	}
	var view WorldView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to decode world view")
	}
	return &view, nil
}

func (s *BuildService) loadWorld(ctx context.Context, seedID string) (*WorldView, error) {
	seed, err := s.reader.GetSeed(ctx, seedID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrSeedNotFound
		}
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load seed")
	}
	characters, err := s.reader.ListCharacters(ctx, seedID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list characters")
	}
	locations, err := s.reader.ListLocations(ctx, seedID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list locations")
	}
	ids := make([]string, 0, len(locations))
	for _, l := range locations {
		ids = append(ids, l.ID)
	}
	events, err := s.reader.ListEventsAtLocations(ctx, seedID, ids)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list events")
	}
	return &WorldView{Seed: seed, Characters: characters, Locations: locations, Events: events}, nil
}

// storeReport 缓存写入失败只记录日志
func (s *BuildService) storeReport(ctx context.Context, seedID string, report Report) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		logger.Warn(ctx, "failed to encode report", "error", err.Error())
		return
	}
	if err := s.cache.Set(ctx, rediscache.ReportKey(seedID), json.RawMessage(raw), s.opts.ReportTTL); err != nil {
		logger.Warn(ctx, "failed to cache report", "error", err.Error())
	}
	if err := s.cache.Delete(ctx, rediscache.ViewKey(seedID)); err != nil {
		logger.Warn(ctx, "failed to invalidate world view", "error", err.Error())
	}
}
