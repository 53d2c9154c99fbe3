// Package memory 提供进程内的 Session 实现，用于试运行与测试
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"world-forge-api/internal/domain/entity"
	"world-forge-api/internal/domain/repository"
)

var errSessionClosed = errors.New("session is closed")

// Snapshot 已提交数据的拷贝
type Snapshot struct {
	Seeds             []*entity.Seed
	Characters        []*entity.Character
	Locations         []*entity.Location
	Events            []*entity.Event
	EventCharacters   []*entity.EventCharacter
	Relationships     []*entity.CharacterRelationship
	Skills            []*entity.Skill
	CharacterSkills   []*entity.CharacterSkill
	Statuses          []*entity.Status
	CharacterStatuses []*entity.CharacterStatus
	Items             []*entity.Item
	CharacterItems    []*entity.CharacterItem
}

// Store 进程内世界数据存储
type Store struct {
	mu   sync.RWMutex
	data Snapshot
}

// NewStore 创建空存储
func NewStore() *Store {
	return &Store{}
}

// Open 实现 repository.SessionFactory
func (s *Store) Open(_ context.Context) (repository.Session, error) {
	return &Session{store: s}, nil
}

// Snapshot 返回已提交数据
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Seeds:             append([]*entity.Seed(nil), s.data.Seeds...),
		Characters:        append([]*entity.Character(nil), s.data.Characters...),
		Locations:         append([]*entity.Location(nil), s.data.Locations...),
		Events:            append([]*entity.Event(nil), s.data.Events...),
		EventCharacters:   append([]*entity.EventCharacter(nil), s.data.EventCharacters...),
		Relationships:     append([]*entity.CharacterRelationship(nil), s.data.Relationships...),
		Skills:            append([]*entity.Skill(nil), s.data.Skills...),
		CharacterSkills:   append([]*entity.CharacterSkill(nil), s.data.CharacterSkills...),
		Statuses:          append([]*entity.Status(nil), s.data.Statuses...),
		CharacterStatuses: append([]*entity.CharacterStatus(nil), s.data.CharacterStatuses...),
		Items:             append([]*entity.Item(nil), s.data.Items...),
		CharacterItems:    append([]*entity.CharacterItem(nil), s.data.CharacterItems...),
	}
}

func (s *Store) findSeed(id string) *entity.Seed {
	for _, seed := range s.data.Seeds {
		if seed.ID == id {
			return seed
		}
	}
	return nil
}

// GetSeed 实现 repository.WorldReader
func (s *Store) GetSeed(_ context.Context, seedID string) (*entity.Seed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seed := s.findSeed(seedID)
	if seed == nil {
		return nil, repository.ErrNotFound
	}
	cp := *seed
	return &cp, nil
}

// ListCharacters 主角在前
func (s *Store) ListCharacters(_ context.Context, seedID string) ([]*entity.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.Character, 0)
	for _, c := range s.data.Characters {
		if c.SeedID == seedID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MainCharacter && !out[j].MainCharacter
	})
	return out, nil
}

// ListLocations 顶层地点在前
func (s *Store) ListLocations(_ context.Context, seedID string) ([]*entity.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entity.Location, 0)
	for _, l := range s.data.Locations {
		if l.SeedID == seedID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsTopLevel() && !out[j].IsTopLevel()
	})
	return out, nil
}

func (s *Store) ListEventsAtLocations(_ context.Context, seedID string, locationIDs []string) ([]*entity.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(locationIDs))
	for _, id := range locationIDs {
		wanted[id] = struct{}{}
	}
	out := make([]*entity.Event, 0)
	for _, e := range s.data.Events {
		if _, ok := wanted[e.LocationID]; ok && e.SeedID == seedID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Session 在内存中缓存写入，Commit 时一次性应用
type Session struct {
	store   *Store
	pending []func(*Snapshot)
	seeds   map[string]*entity.Seed
	closed  bool
}

func (s *Session) stage(op func(*Snapshot)) error {
	if s.closed {
		return errSessionClosed
	}
	s.pending = append(s.pending, op)
	return nil
}

func assignID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}

func (s *Session) CreateSeed(_ context.Context, seed *entity.Seed) error {
	assignID(&seed.ID)
	cp := *seed
	if s.seeds == nil {
		s.seeds = make(map[string]*entity.Seed)
	}
	s.seeds[cp.ID] = &cp
	return s.stage(func(d *Snapshot) { d.Seeds = append(d.Seeds, &cp) })
}

func (s *Session) SetSeedDateTime(_ context.Context, seedID string, t time.Time) error {
	s.store.mu.RLock()
	committed := s.store.findSeed(seedID) != nil
	s.store.mu.RUnlock()
	if _, ok := s.seeds[seedID]; !ok && !committed {
		return fmt.Errorf("seed %s: %w", seedID, repository.ErrNotFound)
	}
	return s.stage(func(d *Snapshot) {
		for _, seed := range d.Seeds {
			if seed.ID == seedID {
				tt := t
				seed.CurrentDateTime = &tt
			}
		}
	})
}

func (s *Session) CreateCharacter(_ context.Context, c *entity.Character) error {
	assignID(&c.ID)
	cp := *c
	return s.stage(func(d *Snapshot) { d.Characters = append(d.Characters, &cp) })
}

func (s *Session) CreateLocation(_ context.Context, l *entity.Location) error {
	assignID(&l.ID)
	cp := *l
	return s.stage(func(d *Snapshot) { d.Locations = append(d.Locations, &cp) })
}

func (s *Session) CreateEvent(_ context.Context, e *entity.Event) error {
	assignID(&e.ID)
	cp := *e
	return s.stage(func(d *Snapshot) { d.Events = append(d.Events, &cp) })
}

func (s *Session) CreateEventCharacter(_ context.Context, ec *entity.EventCharacter) error {
	assignID(&ec.ID)
	cp := *ec
	return s.stage(func(d *Snapshot) { d.EventCharacters = append(d.EventCharacters, &cp) })
}

func (s *Session) CreateRelationship(_ context.Context, r *entity.CharacterRelationship) error {
	assignID(&r.ID)
	cp := *r
	return s.stage(func(d *Snapshot) { d.Relationships = append(d.Relationships, &cp) })
}

func (s *Session) CreateSkill(_ context.Context, sk *entity.Skill) error {
	assignID(&sk.ID)
	cp := *sk
	return s.stage(func(d *Snapshot) { d.Skills = append(d.Skills, &cp) })
}

func (s *Session) CreateCharacterSkill(_ context.Context, cs *entity.CharacterSkill) error {
	assignID(&cs.ID)
	cp := *cs
	return s.stage(func(d *Snapshot) { d.CharacterSkills = append(d.CharacterSkills, &cp) })
}

func (s *Session) CreateStatus(_ context.Context, st *entity.Status) error {
	assignID(&st.ID)
	cp := *st
	return s.stage(func(d *Snapshot) { d.Statuses = append(d.Statuses, &cp) })
}

func (s *Session) CreateCharacterStatus(_ context.Context, cs *entity.CharacterStatus) error {
	assignID(&cs.ID)
	cp := *cs
	return s.stage(func(d *Snapshot) { d.CharacterStatuses = append(d.CharacterStatuses, &cp) })
}

func (s *Session) CreateItem(_ context.Context, i *entity.Item) error {
	assignID(&i.ID)
	cp := *i
	return s.stage(func(d *Snapshot) { d.Items = append(d.Items, &cp) })
}

func (s *Session) CreateCharacterItem(_ context.Context, ci *entity.CharacterItem) error {
	assignID(&ci.ID)
	cp := *ci
	return s.stage(func(d *Snapshot) { d.CharacterItems = append(d.CharacterItems, &cp) })
}

// Commit 应用全部待提交写入
func (s *Session) Commit(_ context.Context) error {
	if s.closed {
		return errSessionClosed
	}
	s.store.mu.Lock()
	for _, op := range s.pending {
		op(&s.store.data)
	}
	s.store.mu.Unlock()
	s.reset()
	return nil
}

// Rollback 丢弃待提交写入
func (s *Session) Rollback(_ context.Context) error {
	s.reset()
	return nil
}

func (s *Session) Close() error {
	s.reset()
	s.closed = true
	return nil
}

func (s *Session) reset() {
	s.pending = nil
	s.seeds = nil
}
