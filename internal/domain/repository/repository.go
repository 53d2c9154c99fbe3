// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"errors"
	"time"

	"world-forge-api/internal/domain/entity"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// Session 单次世界构建独占的工作单元
// Create* 在提交前即分配 ID；Commit/Rollback 之后会话仍可继续使用
type Session interface {
	CreateSeed(ctx context.Context, seed *entity.Seed) error
	SetSeedDateTime(ctx context.Context, seedID string, t time.Time) error

	CreateCharacter(ctx context.Context, c *entity.Character) error
	CreateLocation(ctx context.Context, l *entity.Location) error
	CreateEvent(ctx context.Context, e *entity.Event) error
	CreateEventCharacter(ctx context.Context, ec *entity.EventCharacter) error
	CreateRelationship(ctx context.Context, r *entity.CharacterRelationship) error

	CreateSkill(ctx context.Context, s *entity.Skill) error
	CreateCharacterSkill(ctx context.Context, cs *entity.CharacterSkill) error
	CreateStatus(ctx context.Context, s *entity.Status) error
	CreateCharacterStatus(ctx context.Context, cs *entity.CharacterStatus) error
	CreateItem(ctx context.Context, i *entity.Item) error
	CreateCharacterItem(ctx context.Context, ci *entity.CharacterItem) error

	// Commit 提交当前工作单元
	Commit(ctx context.Context) error
	// Rollback 丢弃当前未提交的写入
	Rollback(ctx context.Context) error
	// Close 释放会话，未提交的写入被丢弃
	Close() error
}

// SessionFactory 为每次构建创建独立会话
type SessionFactory interface {
	Open(ctx context.Context) (Session, error)
}

// WorldReader 已提交世界数据的只读视图
type WorldReader interface {
	GetSeed(ctx context.Context, seedID string) (*entity.Seed, error)
	ListCharacters(ctx context.Context, seedID string) ([]*entity.Character, error)
	ListLocations(ctx context.Context, seedID string) ([]*entity.Location, error)
	ListEventsAtLocations(ctx context.Context, seedID string, locationIDs []string) ([]*entity.Event, error)
}
