package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"world-forge-api/internal/domain/entity"
	"world-forge-api/internal/domain/repository"
	wfnode "world-forge-api/internal/workflow/node"
	"world-forge-api/internal/workflow/prompt"
	"world-forge-api/pkg/logger"
)

// 随机属性范围
const (
	protagonistAbilityMin = 8
	protagonistAbilityMax = 16
	npcAbilityMin         = 4
	npcAbilityMax         = 16
	npcLevelMin           = 1
	npcLevelMax           = 3
	npcCurrencyMax        = 1000
	npcSkillLevelMax      = 5
	npcSkillExpMax        = 100
	eventOffsetHoursMin   = 1
	eventOffsetHoursMax   = 5
	healthPerLevel        = 100
)

// CharacterStage 生成主角、NPC 以及它们的技能、状态、关系、物品与事件
type CharacterStage struct {
	env *Env
}

func NewCharacterStage(env *Env) *CharacterStage {
	return &CharacterStage{env: env}
}

// CreateProtagonist 缺失的能力值在 [8,16] 内随机补齐；模型给出世界时间时写回 Seed
func (s *CharacterStage) CreateProtagonist(ctx context.Context) (*Protagonist, StageResult) {
	var out *Protagonist
	err := s.env.Runner.Attempt(ctx, StageMainCharacter, func(ctx context.Context, sess repository.Session) error {
		out = nil
		text, err := s.env.ask(ctx, prompt.SlotMainCharacter, nil)
		if err != nil {
			return err
		}
		rec, err := wfnode.ExtractOne[wfnode.CharacterRecord](ctx, text, "")
		if err != nil {
			return err
		}
		abilities, err := s.protagonistAbilities(rec)
		if err != nil {
			return err
		}

		c := &entity.Character{
			SeedID:          s.env.SeedID,
			MainCharacter:   true,
			Alive:           true,
			Name:            rec.Name,
			DateOfBirth:     rec.DateOfBirth,
			Race:            rec.Race,
			Gender:          rec.Gender,
			Abilities:       abilities,
			Level:           entity.ProtagonistLevel,
			ExpPoints:       entity.ExperienceForLevel(entity.ProtagonistLevel),
			CurrentHealth:   entity.ProtagonistHealth,
			MaxHealth:       entity.ProtagonistHealth,
			CurrentCurrency: entity.ProtagonistCurrency,
		}
		if err := sess.CreateCharacter(ctx, c); err != nil {
			return err
		}
		if rec.CurrentDateTime != nil {
			if err := sess.SetSeedDateTime(ctx, s.env.SeedID, *rec.CurrentDateTime); err != nil {
				return err
			}
		}

		out = &Protagonist{ID: c.ID, Record: rec, CurrentDateTime: rec.CurrentDateTime}
		return nil
	})
	if err != nil {
		return nil, failuref("Failed to create main character: %v", err)
	}
	return out, success("Main character created successfully").with("character_id", out.ID)
}

// CreateProtagonistSkills 主角技能从 1 级、0 经验开始
func (s *CharacterStage) CreateProtagonistSkills(ctx context.Context, p *Protagonist) StageResult {
	if p == nil {
		return failure("Main character is not available")
	}
	var created int
	err := s.env.Runner.Attempt(ctx, StageMainCharacterSkills, func(ctx context.Context, sess repository.Session) error {
		text, err := s.env.ask(ctx, prompt.SlotMainCharacterSkills, map[string]any{
			prompt.VarCharacter: describeCharacter(p.ID, p.Record),
		})
		if err != nil {
			return err
		}
		recs, err := wfnode.ExtractMany[wfnode.SkillRecord](ctx, text, "")
		if err != nil {
			return err
		}
		created, err = s.assignSkills(ctx, sess, p.ID, recs, func() (int, int, error) {
			return 1, 0, nil
		})
		return err
	})
	if err != nil {
		return failuref("Failed to create main character skills: %v", err)
	}
	return success("Main character skills created successfully").with("records", created)
}

// CreateProtagonistStatuses 与 NPC 状态使用同一策略：active，结束时间为当前时间加持续时长
func (s *CharacterStage) CreateProtagonistStatuses(ctx context.Context, p *Protagonist) StageResult {
	if p == nil {
		return failure("Main character is not available")
	}
	var created int
	err := s.env.Runner.Attempt(ctx, StageMainCharacterStatuses, func(ctx context.Context, sess repository.Session) error {
		text, err := s.env.ask(ctx, prompt.SlotMainCharacterStatuses, map[string]any{
			prompt.VarCharacter: describeCharacter(p.ID, p.Record),
		})
		if err != nil {
			return err
		}
		recs, err := wfnode.ExtractMany[wfnode.StatusRecord](ctx, text, "")
		if err != nil {
			return err
		}
		created, err = s.assignStatuses(ctx, sess, p.ID, recs)
		return err
	})
	if err != nil {
		return failuref("Failed to create main character statuses: %v", err)
	}
	return success("Main character statuses created successfully").with("records", created)
}

// CreateNPCs 每个顶层地点一批 NPC，每批独立提交；每个 NPC 带一个锚定在该地点的事件
func (s *CharacterStage) CreateNPCs(ctx context.Context, p *Protagonist, locations []PlacedLocation) ([]PlacedNPC, StageResult) {
	if len(locations) == 0 {
		return nil, failure("No locations available for surrounding characters")
	}

	var (
		all    []PlacedNPC
		failed int
	)
	for _, loc := range locations {
		var batch []PlacedNPC
		err := s.env.Runner.Attempt(ctx, StageSurroundingCharacters, func(ctx context.Context, sess repository.Session) error {
			batch = nil
			text, err := s.env.ask(ctx, prompt.SlotSurroundingCharacters, map[string]any{
				prompt.VarLocation: describeLocation(loc.Location),
			})
			if err != nil {
				return err
			}
			recs, err := wfnode.ExtractMany[wfnode.CharacterRecord](ctx, text, "")
			if err != nil {
				return err
			}
			for _, rec := range recs {
				c, err := s.newNPC(rec)
				if err != nil {
					return err
				}
				if err := sess.CreateCharacter(ctx, c); err != nil {
					return err
				}
				if err := s.anchorEvent(ctx, sess, p, loc, c.ID, rec); err != nil {
					return err
				}
				batch = append(batch, PlacedNPC{ID: c.ID, LocationID: loc.ID, Record: rec})
			}
			return nil
		})
		if err != nil {
			failed++
			logger.Warn(ctx, "surrounding characters exhausted for location",
				"location_id", loc.ID,
				"location", loc.Name,
				"error", err.Error(),
			)
			continue
		}
		all = append(all, batch...)
	}

	if failed == len(locations) {
		return all, failuref("Failed to create surrounding characters for all %d locations", failed)
	}
	res := success("Surrounding characters and their events created successfully").with("characters", len(all))
	if failed > 0 {
		res = res.with("failed_locations", failed)
	}
	return all, res
}

// CreateNPCSkills 技能等级 [1,5]，经验 [0,100]
func (s *CharacterStage) CreateNPCSkills(ctx context.Context, npcs []PlacedNPC) StageResult {
	return s.eachNPC(ctx, StageSurroundingCharactersSkills, "surrounding characters skills", npcs,
		func(ctx context.Context, sess repository.Session, npc PlacedNPC) (int, error) {
			text, err := s.env.ask(ctx, prompt.SlotCharacterSkills, map[string]any{
				prompt.VarCharacter: describeCharacter(npc.ID, npc.Record),
			})
			if err != nil {
				return 0, err
			}
			recs, err := wfnode.ExtractMany[wfnode.SkillRecord](ctx, text, "")
			if err != nil {
				return 0, err
			}
			return s.assignSkills(ctx, sess, npc.ID, recs, func() (int, int, error) {
				level, err := s.env.uniform(1, npcSkillLevelMax)
				if err != nil {
					return 0, 0, err
				}
				exp, err := s.env.uniform(0, npcSkillExpMax)
				return level, exp, err
			})
		})
}

func (s *CharacterStage) CreateNPCStatuses(ctx context.Context, npcs []PlacedNPC) StageResult {
	return s.eachNPC(ctx, StageSurroundingCharactersStatuses, "surrounding characters statuses", npcs,
		func(ctx context.Context, sess repository.Session, npc PlacedNPC) (int, error) {
			text, err := s.env.ask(ctx, prompt.SlotCharacterStatuses, map[string]any{
				prompt.VarCharacter: describeCharacter(npc.ID, npc.Record),
			})
			if err != nil {
				return 0, err
			}
			recs, err := wfnode.ExtractMany[wfnode.StatusRecord](ctx, text, "")
			if err != nil {
				return 0, err
			}
			return s.assignStatuses(ctx, sess, npc.ID, recs)
		})
}

func (s *CharacterStage) CreateNPCItems(ctx context.Context, npcs []PlacedNPC) StageResult {
	return s.eachNPC(ctx, StageSurroundingCharactersItems, "surrounding characters items", npcs,
		func(ctx context.Context, sess repository.Session, npc PlacedNPC) (int, error) {
			text, err := s.env.ask(ctx, prompt.SlotCharacterItems, map[string]any{
				prompt.VarCharacter: describeCharacter(npc.ID, npc.Record),
			})
			if err != nil {
				return 0, err
			}
			recs, err := wfnode.ExtractMany[wfnode.ItemRecord](ctx, text, "")
			if err != nil {
				return 0, err
			}
			return s.assignItems(ctx, sess, npc.ID, recs)
		})
}

// CreateNPCRelationships 从全部无序对中无放回采样，整轮作为一个工作单元
func (s *CharacterStage) CreateNPCRelationships(ctx context.Context, npcs []PlacedNPC) StageResult {
	if len(npcs) < 2 {
		return failure("Not enough surrounding characters to create relationships")
	}
	limit := s.env.MaxRelationshipPairs
	if limit <= 0 {
		limit = DefaultMaxRelationshipPairs
	}
	pairs, err := samplePairs(s.env, len(npcs), limit)
	if err != nil {
		return failuref("Failed to sample character pairs: %v", err)
	}

	var created, skipped int
	err = s.env.Runner.Attempt(ctx, StageSurroundingCharactersRelationships, func(ctx context.Context, sess repository.Session) error {
		created, skipped = 0, 0
		for _, pair := range pairs {
			a, b := npcs[pair[0]], npcs[pair[1]]
			text, err := s.env.ask(ctx, prompt.SlotCharacterRelationship, map[string]any{
				prompt.VarCharacter:        describeCharacter(a.ID, a.Record),
				prompt.VarRelatedCharacter: describeCharacter(b.ID, b.Record),
			})
			if err != nil {
				return err
			}
			rec, err := wfnode.ExtractOne[wfnode.RelationshipRecord](ctx, text, "relationship")
			if errors.Is(err, wfnode.ErrExtraction) {
				skipped++
				logger.Warn(ctx, "skipping relationship after extraction failure",
					"character_id", a.ID,
					"related_character_id", b.ID,
					"error", err.Error(),
				)
				continue
			}
			if err != nil {
				return err
			}
			if err := sess.CreateRelationship(ctx, s.newRelationship(a.ID, b.ID, rec)); err != nil {
				return err
			}
			created++
		}
		if created == 0 {
			return fmt.Errorf("%w: no relationship extracted in this pass", wfnode.ErrExtraction)
		}
		return nil
	})
	if err != nil {
		return failuref("Failed to create surrounding characters relationships: %v", err)
	}
	return success("Surrounding characters relationships created successfully").
		with("records", created).
		with("skipped_pairs", skipped)
}

type npcUnit func(ctx context.Context, sess repository.Session, npc PlacedNPC) (int, error)

// eachNPC 一轮遍历全部 NPC：单个 NPC 提取失败则跳过；整轮无一成功时重试
func (s *CharacterStage) eachNPC(ctx context.Context, stage, what string, npcs []PlacedNPC, fn npcUnit) StageResult {
	if len(npcs) == 0 {
		return failure("No surrounding characters data available")
	}

	var created, skipped int
	err := s.env.Runner.Attempt(ctx, stage, func(ctx context.Context, sess repository.Session) error {
		created, skipped = 0, 0
		for _, npc := range npcs {
			n, err := fn(ctx, sess, npc)
			if errors.Is(err, wfnode.ErrExtraction) {
				skipped++
				logger.Warn(ctx, "skipping character after extraction failure",
					"stage", stage,
					"character_id", npc.ID,
					"error", err.Error(),
				)
				continue
			}
			if err != nil {
				return err
			}
			created += n
		}
		if skipped == len(npcs) {
			return fmt.Errorf("%w: no character succeeded in this pass", wfnode.ErrExtraction)
		}
		return nil
	})
	if err != nil {
		return failuref("Failed to create %s: %v", what, err)
	}
	return success(fmt.Sprintf("Created %s successfully", what)).
		with("records", created).
		with("skipped_characters", skipped)
}

func (s *CharacterStage) assignSkills(ctx context.Context, sess repository.Session, characterID string, recs []*wfnode.SkillRecord, progression func() (int, int, error)) (int, error) {
	for _, rec := range recs {
		skill := &entity.Skill{Name: rec.Name, Description: rec.Description}
		if err := sess.CreateSkill(ctx, skill); err != nil {
			return 0, err
		}
		level, exp, err := progression()
		if err != nil {
			return 0, err
		}
		if err := sess.CreateCharacterSkill(ctx, &entity.CharacterSkill{
			SeedID:      s.env.SeedID,
			CharacterID: characterID,
			SkillID:     skill.ID,
			Level:       level,
			ExpPoints:   exp,
		}); err != nil {
			return 0, err
		}
	}
	return len(recs), nil
}

func (s *CharacterStage) assignStatuses(ctx context.Context, sess repository.Session, characterID string, recs []*wfnode.StatusRecord) (int, error) {
	now := s.env.now()
	for _, rec := range recs {
		duration := wfnode.Float(rec.Duration, 0)
		status := &entity.Status{
			Name:        rec.Name,
			Description: rec.Description,
			Type:        rec.Type,
			Duration:    duration,
		}
		if err := sess.CreateStatus(ctx, status); err != nil {
			return 0, err
		}
		end := now.Add(time.Duration(duration * float64(time.Hour)))
		if err := sess.CreateCharacterStatus(ctx, &entity.CharacterStatus{
			SeedID:      s.env.SeedID,
			CharacterID: characterID,
			StatusID:    status.ID,
			Active:      true,
			EndDateTime: &end,
		}); err != nil {
			return 0, err
		}
	}
	return len(recs), nil
}

func (s *CharacterStage) assignItems(ctx context.Context, sess repository.Session, characterID string, recs []*wfnode.ItemRecord) (int, error) {
	for _, rec := range recs {
		item := &entity.Item{
			Name:        rec.Name,
			Description: rec.Description,
			Type:        rec.Type,
			Value:       wfnode.Float(rec.Value, 0),
			Weight:      wfnode.Float(rec.Weight, 0),
		}
		if err := sess.CreateItem(ctx, item); err != nil {
			return 0, err
		}
		if err := sess.CreateCharacterItem(ctx, &entity.CharacterItem{
			SeedID:      s.env.SeedID,
			CharacterID: characterID,
			ItemID:      item.ID,
			Quantity:    int(math.Round(wfnode.Float(rec.Quantity, 1))),
			Condition:   wfnode.Float(rec.Condition, 100),
		}); err != nil {
			return 0, err
		}
	}
	return len(recs), nil
}

// anchorEvent 事件时间取主角当前时间往前 1-5 小时；主角没有时间时两端均为空
func (s *CharacterStage) anchorEvent(ctx context.Context, sess repository.Session, p *Protagonist, loc PlacedLocation, characterID string, rec *wfnode.CharacterRecord) error {
	text, err := s.env.ask(ctx, prompt.SlotCharacterEvent, map[string]any{
		prompt.VarCharacter: describeCharacter(characterID, rec),
		prompt.VarLocation:  describeLocation(loc.Location),
	})
	if err != nil {
		return err
	}
	ev, err := wfnode.ExtractOne[wfnode.EventRecord](ctx, text, "event")
	if err != nil {
		return err
	}

	var start, end *time.Time
	if p != nil && p.CurrentDateTime != nil {
		offset, err := s.env.uniform(eventOffsetHoursMin, eventOffsetHoursMax)
		if err != nil {
			return err
		}
		st := p.CurrentDateTime.Add(-time.Duration(offset) * time.Hour)
		en := *p.CurrentDateTime
		start, end = &st, &en
	}

	event := &entity.Event{
		SeedID:        s.env.SeedID,
		Name:          ev.Name,
		Description:   ev.Description,
		Type:          ev.Type,
		StartDateTime: start,
		EndDateTime:   end,
		LocationID:    loc.ID,
		StartTurn:     entity.InitialTurn,
		EndTurn:       entity.InitialTurn,
	}
	if err := sess.CreateEvent(ctx, event); err != nil {
		return err
	}
	return sess.CreateEventCharacter(ctx, &entity.EventCharacter{
		SeedID:      s.env.SeedID,
		CharacterID: characterID,
		EventID:     event.ID,
		Role:        ev.Role,
	})
}

func (s *CharacterStage) protagonistAbilities(rec *wfnode.CharacterRecord) (entity.AbilityScores, error) {
	vals := []*float64{rec.Strength, rec.Speed, rec.Agility, rec.Intelligence, rec.Wisdom, rec.Charisma}
	scores := make([]int, len(vals))
	for i, v := range vals {
		if v != nil {
			scores[i] = int(math.Round(*v))
			continue
		}
		r, err := s.env.uniform(protagonistAbilityMin, protagonistAbilityMax)
		if err != nil {
			return entity.AbilityScores{}, err
		}
		scores[i] = r
	}
	return abilityScores(scores), nil
}

func (s *CharacterStage) newNPC(rec *wfnode.CharacterRecord) (*entity.Character, error) {
	level, err := s.env.uniform(npcLevelMin, npcLevelMax)
	if err != nil {
		return nil, err
	}
	scores := make([]int, 6)
	for i := range scores {
		r, err := s.env.uniform(npcAbilityMin, npcAbilityMax)
		if err != nil {
			return nil, err
		}
		scores[i] = r + level
	}
	currency, err := s.env.uniform(0, npcCurrencyMax)
	if err != nil {
		return nil, err
	}

	return &entity.Character{
		SeedID:          s.env.SeedID,
		MainCharacter:   false,
		Alive:           true,
		Name:            rec.Name,
		DateOfBirth:     rec.DateOfBirth,
		Race:            rec.Race,
		Gender:          rec.Gender,
		Abilities:       abilityScores(scores),
		Level:           level,
		ExpPoints:       entity.ExperienceForLevel(level),
		CurrentHealth:   healthPerLevel * level,
		MaxHealth:       healthPerLevel * level,
		CurrentCurrency: currency,
	}, nil
}

func (s *CharacterStage) newRelationship(characterID, relatedID string, rec *wfnode.RelationshipRecord) *entity.CharacterRelationship {
	return &entity.CharacterRelationship{
		SeedID:             s.env.SeedID,
		CharacterID:        characterID,
		RelatedCharacterID: relatedID,
		RelationshipType:   rec.Type,
		Attraction:         affect(rec.Attraction, entity.AffectNeutral),
		Respect:            affect(rec.Respect, entity.AffectNeutral),
		Trust:              affect(rec.Trust, entity.AffectNeutral),
		Familiarity:        affect(rec.Familiarity, entity.FamiliarityDefault),
		Anger:              affect(rec.Anger, entity.AffectNeutral),
		Fear:               affect(rec.Fear, entity.AffectNeutral),
	}
}

func affect(v *float64, def int) int {
	if v == nil {
		return def
	}
	return entity.ClampAffect(int(math.Round(*v)))
}

func abilityScores(s []int) entity.AbilityScores {
	return entity.AbilityScores{
		Strength:     s[0],
		Speed:        s[1],
		Agility:      s[2],
		Intelligence: s[3],
		Wisdom:       s[4],
		Charisma:     s[5],
	}
}

// samplePairs 在全部 (i<j) 对上做部分 Fisher-Yates 洗牌，取前 k 个
func samplePairs(env *Env, n, k int) ([][2]int, error) {
	pairs := make([][2]int, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, [2]int{i, j})
		}
	}
	if k > len(pairs) {
		k = len(pairs)
	}
	for i := 0; i < k; i++ {
		r, err := env.uniform(i, len(pairs)-1)
		if err != nil {
			return nil, err
		}
		pairs[i], pairs[r] = pairs[r], pairs[i]
	}
	return pairs[:k], nil
}
