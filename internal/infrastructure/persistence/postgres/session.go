package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"world-forge-api/internal/domain/entity"
	"world-forge-api/internal/domain/repository"
	"world-forge-api/pkg/metrics"
)

var errSessionClosed = errors.New("session is closed")

// SessionFactory 为每次世界构建创建独立的 GORM 事务会话
type SessionFactory struct {
	client *Client
}

// NewSessionFactory 创建会话工厂
func NewSessionFactory(client *Client) *SessionFactory {
	return &SessionFactory{client: client}
}

// Open 打开会话并立即开启事务
func (f *SessionFactory) Open(ctx context.Context) (repository.Session, error) {
	ctx, span := tracer.Start(ctx, "postgres.SessionFactory.Open")
	defer span.End()

	s := &Session{db: f.client.db}
	if err := s.begin(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s, nil
}

// Session 基于 GORM 事务的工作单元
// Commit/Rollback 之后在下一次写入时重新开启事务
type Session struct {
	db     *gorm.DB
	tx     *gorm.DB
	closed bool
}

func (s *Session) begin(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	s.tx = tx
	return nil
}

func (s *Session) current(ctx context.Context) (*gorm.DB, error) {
	if s.closed {
		return nil, errSessionClosed
	}
	if s.tx == nil {
		if err := s.begin(ctx); err != nil {
			return nil, err
		}
	}
	return s.tx.WithContext(ctx), nil
}

func (s *Session) create(ctx context.Context, kind string, value any) error {
	ctx, span := tracer.Start(ctx, "postgres.Session.Create",
		trace.WithAttributes(attribute.String("record.kind", kind)))
	defer span.End()

	db, err := s.current(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := db.Create(value).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create %s: %w", kind, err)
	}
	metrics.RecordsCreatedTotal.WithLabelValues(kind).Inc()
	return nil
}

func (s *Session) CreateSeed(ctx context.Context, seed *entity.Seed) error {
	return s.create(ctx, "seed", seed)
}

// SetSeedDateTime 更新世界内当前时间
func (s *Session) SetSeedDateTime(ctx context.Context, seedID string, t time.Time) error {
	ctx, span := tracer.Start(ctx, "postgres.Session.SetSeedDateTime")
	defer span.End()

	db, err := s.current(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	res := db.Model(&entity.Seed{}).Where("id = ?", seedID).Update("current_date_time", t)
	if res.Error != nil {
		span.RecordError(res.Error)
		return fmt.Errorf("failed to update seed date time: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("seed %s: %w", seedID, repository.ErrNotFound)
	}
	return nil
}

func (s *Session) CreateCharacter(ctx context.Context, c *entity.Character) error {
	return s.create(ctx, "character", c)
}

func (s *Session) CreateLocation(ctx context.Context, l *entity.Location) error {
	return s.create(ctx, "location", l)
}

func (s *Session) CreateEvent(ctx context.Context, e *entity.Event) error {
	return s.create(ctx, "event", e)
}

func (s *Session) CreateEventCharacter(ctx context.Context, ec *entity.EventCharacter) error {
	return s.create(ctx, "event_character", ec)
}

func (s *Session) CreateRelationship(ctx context.Context, r *entity.CharacterRelationship) error {
	return s.create(ctx, "character_relationship", r)
}

func (s *Session) CreateSkill(ctx context.Context, sk *entity.Skill) error {
	return s.create(ctx, "skill", sk)
}

func (s *Session) CreateCharacterSkill(ctx context.Context, cs *entity.CharacterSkill) error {
	return s.create(ctx, "character_skill", cs)
}

func (s *Session) CreateStatus(ctx context.Context, st *entity.Status) error {
	return s.create(ctx, "status", st)
}

func (s *Session) CreateCharacterStatus(ctx context.Context, cs *entity.CharacterStatus) error {
	return s.create(ctx, "character_status", cs)
}

func (s *Session) CreateItem(ctx context.Context, i *entity.Item) error {
	return s.create(ctx, "item", i)
}

func (s *Session) CreateCharacterItem(ctx context.Context, ci *entity.CharacterItem) error {
	return s.create(ctx, "character_item", ci)
}

// Commit 提交当前事务
func (s *Session) Commit(ctx context.Context) error {
	_, span := tracer.Start(ctx, "postgres.Session.Commit")
	defer span.End()

	if s.closed {
		return errSessionClosed
	}
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit().Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback 回滚当前事务
func (s *Session) Rollback(ctx context.Context) error {
	_, span := tracer.Start(ctx, "postgres.Session.Rollback")
	defer span.End()

	if s.closed || s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback().Error; err != nil && !errors.Is(err, gorm.ErrInvalidTransaction) {
		span.RecordError(err)
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Close 回滚未提交的写入并关闭会话
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	var err error
	if s.tx != nil {
		err = s.tx.Rollback().Error
		s.tx = nil
		if errors.Is(err, gorm.ErrInvalidTransaction) {
			err = nil
		}
	}
	s.closed = true
	return err
}
