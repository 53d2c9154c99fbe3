package world

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"world-forge-api/internal/domain/entity"
	wfnode "world-forge-api/internal/workflow/node"
	"world-forge-api/internal/workflow/port"
	"world-forge-api/internal/workflow/prompt"
)

// 阶段名，同时作为报告键
const (
	StageMainCharacter                      = "main_character"
	StageMainCharacterSkills                = "main_character_skills"
	StageMainCharacterStatuses              = "main_character_statuses"
	StageLocations                          = "locations"
	StageSurroundingCharacters              = "surrounding_characters"
	StageSurroundingCharactersSkills        = "surrounding_characters_skills"
	StageSurroundingCharactersStatuses      = "surrounding_characters_statuses"
	StageSurroundingCharactersRelationships = "surrounding_characters_relationships"
	StageSurroundingCharactersItems         = "surrounding_characters_items"
)

// DefaultMaxRelationshipPairs 关系阶段最多采样的角色对数
const DefaultMaxRelationshipPairs = 10

// PromptRenderer 提示词表
type PromptRenderer interface {
	Render(ctx context.Context, slot prompt.Slot, vars map[string]any) (string, error)
}

// Env 一次构建中各阶段共享的依赖
type Env struct {
	SeedID   string
	SeedData string

	Runner  *Runner
	Gen     port.Generator
	Prompts PromptRenderer
	Roller  dice.Roller
	Now     func() time.Time

	MaxRelationshipPairs int
}

// ask 渲染槽位并调用模型；seed_data 自动注入
func (e *Env) ask(ctx context.Context, slot prompt.Slot, vars map[string]any) (string, error) {
	all := make(map[string]any, len(vars)+1)
	for k, v := range vars {
		all[k] = v
	}
	all[prompt.VarSeedData] = e.SeedData

	text, err := e.Prompts.Render(ctx, slot, all)
	if err != nil {
		return "", err
	}
	return e.Gen.Generate(ctx, text)
}

// uniform 闭区间 [lo, hi] 上的均匀整数
func (e *Env) uniform(lo, hi int) (int, error) {
	if hi < lo {
		return 0, fmt.Errorf("invalid range [%d, %d]", lo, hi)
	}
	r, err := e.Roller.Roll(hi - lo + 1)
	if err != nil {
		return 0, fmt.Errorf("roll: %w", err)
	}
	return lo - 1 + r, nil
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// Protagonist 主角生成结果，供后续阶段引用
type Protagonist struct {
	ID              string
	Record          *wfnode.CharacterRecord
	CurrentDateTime *time.Time
}

// PlacedLocation 已提交的地点
type PlacedLocation struct {
	*entity.Location
}

// PlacedNPC 已提交的 NPC 及其所在的顶层地点
type PlacedNPC struct {
	ID         string
	LocationID string
	Record     *wfnode.CharacterRecord
}

// State 各阶段之间显式传递的构建状态
type State struct {
	Protagonist *Protagonist
	Locations   []PlacedLocation
	NPCs        []PlacedNPC
}

// characterBrief 写入提示词的角色摘要
type characterBrief struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Race        string `json:"race,omitempty"`
	Gender      string `json:"gender,omitempty"`
}

func describeCharacter(id string, r *wfnode.CharacterRecord) string {
	b := characterBrief{ID: id, Name: r.Name, Race: r.Race}
	if r.DateOfBirth != nil {
		b.DateOfBirth = r.DateOfBirth.Format(wfnode.DateLayout)
	}
	if r.Gender != nil {
		b.Gender = "Female"
		if *r.Gender {
			b.Gender = "Male"
		}
	}
	return mustJSON(b)
}

func describeLocation(l *entity.Location) string {
	return mustJSON(map[string]any{
		"id":          l.ID,
		"name":        l.Name,
		"description": l.Description,
		"type":        l.Type,
		"climate":     l.Climate,
		"terrain":     l.Terrain,
	})
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
