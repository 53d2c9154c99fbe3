package world

import (
	"context"

	"world-forge-api/internal/domain/entity"
	"world-forge-api/internal/domain/repository"
	apperrors "world-forge-api/pkg/errors"
	"world-forge-api/pkg/logger"
)

const stageSeed = "seed"

// SeedService 创建世界种子
type SeedService struct {
	sessions    repository.SessionFactory
	maxAttempts int
}

func NewSeedService(sessions repository.SessionFactory, opts Options) *SeedService {
	return &SeedService{sessions: sessions, maxAttempts: opts.MaxAttempts}
}

// CreateSeed 持久化失败时按 Runner 策略重试
func (s *SeedService) CreateSeed(ctx context.Context) (*entity.Seed, error) {
	sess, err := s.sessions.Open(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to open session")
	}
	defer closeSession(ctx, sess)

	var seed *entity.Seed
	err = NewRunner(sess, s.maxAttempts).Attempt(ctx, stageSeed, func(ctx context.Context, sess repository.Session) error {
		seed = &entity.Seed{}
		return sess.CreateSeed(ctx, seed)
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create seed")
	}

	logger.Info(ctx, "seed created", "seed_id", seed.ID)
	return seed, nil
}

func closeSession(ctx context.Context, sess repository.Session) {
	if err := sess.Close(); err != nil {
		logger.Warn(ctx, "failed to close session", "error", err.Error())
	}
}
