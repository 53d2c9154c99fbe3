package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"world-forge-api/internal/domain/entity"
	"world-forge-api/internal/domain/repository"
)

// WorldRepository 世界数据只读仓储
type WorldRepository struct {
	client *Client
}

// NewWorldRepository 创建世界数据仓储
func NewWorldRepository(client *Client) *WorldRepository {
	return &WorldRepository{client: client}
}

// GetSeed 根据 ID 获取 Seed
func (r *WorldRepository) GetSeed(ctx context.Context, seedID string) (*entity.Seed, error) {
	ctx, span := tracer.Start(ctx, "postgres.WorldRepository.GetSeed")
	defer span.End()

	var seed entity.Seed
	err := r.client.db.WithContext(ctx).Where("id = ?", seedID).First(&seed).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get seed: %w", err)
	}
	return &seed, nil
}

// ListCharacters 列出 seed 下的全部角色，主角在前
func (r *WorldRepository) ListCharacters(ctx context.Context, seedID string) ([]*entity.Character, error) {
	ctx, span := tracer.Start(ctx, "postgres.WorldRepository.ListCharacters")
	defer span.End()

	var characters []*entity.Character
	err := r.client.db.WithContext(ctx).
		Where("seed_id = ?", seedID).
		Order("main_character DESC").
		Order("created_at ASC").
		Find(&characters).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	return characters, nil
}

// ListLocations 列出 seed 下的全部地点，顶层地点在前
func (r *WorldRepository) ListLocations(ctx context.Context, seedID string) ([]*entity.Location, error) {
	ctx, span := tracer.Start(ctx, "postgres.WorldRepository.ListLocations")
	defer span.End()

	var locations []*entity.Location
	err := r.client.db.WithContext(ctx).
		Where("seed_id = ?", seedID).
		Order("parent_id NULLS FIRST").
		Order("created_at ASC").
		Find(&locations).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

// ListEventsAtLocations 列出锚定在指定地点的事件
func (r *WorldRepository) ListEventsAtLocations(ctx context.Context, seedID string, locationIDs []string) ([]*entity.Event, error) {
	ctx, span := tracer.Start(ctx, "postgres.WorldRepository.ListEventsAtLocations")
	defer span.End()

	if len(locationIDs) == 0 {
		return []*entity.Event{}, nil
	}

	var events []*entity.Event
	err := r.client.db.WithContext(ctx).
		Where("seed_id = ? AND location_id = ANY(?)", seedID, pq.Array(locationIDs)).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
