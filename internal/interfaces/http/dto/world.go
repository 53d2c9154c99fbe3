package dto

import (
	"time"

	"world-forge-api/internal/application/world"
	"world-forge-api/internal/domain/entity"
	llmctx "world-forge-api/internal/domain/service"
	"world-forge-api/internal/workflow/chain"
)

// SeedResponse 种子响应
type SeedResponse struct {
	SeedID          string `json:"seed_id"`
	CurrentDateTime string `json:"current_date_time,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

// ToSeedResponse 转换种子实体
func ToSeedResponse(s *entity.Seed) *SeedResponse {
	if s == nil {
		return nil
	}
	resp := &SeedResponse{SeedID: s.ID}
	if s.CurrentDateTime != nil {
		resp.CurrentDateTime = s.CurrentDateTime.Format(time.DateOnly)
	}
	if !s.CreatedAt.IsZero() {
		resp.CreatedAt = s.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

// BuildWorldResponse 构建结果，报告中的失败阶段不影响状态码
type BuildWorldResponse struct {
	SeedID    string           `json:"seed_id"`
	Succeeded bool             `json:"succeeded"`
	Report    world.Report     `json:"report"`
	Usage     *llmctx.LLMUsage `json:"usage,omitempty"`
}

// ToBuildWorldResponse 转换构建结果
func ToBuildWorldResponse(out *world.BuildOutcome) *BuildWorldResponse {
	return &BuildWorldResponse{
		SeedID:    out.SeedID,
		Succeeded: out.Report.Succeeded(),
		Report:    out.Report,
		Usage:     out.Usage,
	}
}

// CharacterBrief 世界视图中的角色
type CharacterBrief struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	MainCharacter bool                 `json:"main_character"`
	Race          string               `json:"race,omitempty"`
	Gender        string               `json:"gender,omitempty"`
	DateOfBirth   string               `json:"date_of_birth,omitempty"`
	Level         int                  `json:"level"`
	Health        int                  `json:"health"`
	MaxHealth     int                  `json:"max_health"`
	Currency      int                  `json:"currency"`
	Abilities     entity.AbilityScores `json:"abilities"`
}

// LocationBrief 世界视图中的地点
type LocationBrief struct {
	ID          string  `json:"id"`
	ParentID    *string `json:"parent_id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Type        string  `json:"type,omitempty"`
	Climate     string  `json:"climate,omitempty"`
	Terrain     string  `json:"terrain,omitempty"`
}

// EventBrief 世界视图中的事件
type EventBrief struct {
	ID            string `json:"id"`
	LocationID    string `json:"location_id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Type          string `json:"type,omitempty"`
	StartDateTime string `json:"start_date_time,omitempty"`
	EndDateTime   string `json:"end_date_time,omitempty"`
}

// WorldViewResponse 世界视图
type WorldViewResponse struct {
	Seed       *SeedResponse     `json:"seed"`
	Characters []*CharacterBrief `json:"characters"`
	Locations  []*LocationBrief  `json:"locations"`
	Events     []*EventBrief     `json:"events"`
}

// ToWorldViewResponse 转换世界视图
func ToWorldViewResponse(v *world.WorldView) *WorldViewResponse {
	resp := &WorldViewResponse{
		Seed:       ToSeedResponse(v.Seed),
		Characters: make([]*CharacterBrief, 0, len(v.Characters)),
		Locations:  make([]*LocationBrief, 0, len(v.Locations)),
		Events:     make([]*EventBrief, 0, len(v.Events)),
	}
	for _, c := range v.Characters {
		b := &CharacterBrief{
			ID:            c.ID,
			Name:          c.Name,
			MainCharacter: c.MainCharacter,
			Race:          c.Race,
			Level:         c.Level,
			Health:        c.CurrentHealth,
			MaxHealth:     c.MaxHealth,
			Currency:      c.CurrentCurrency,
			Abilities:     c.Abilities,
		}
		if c.Gender != nil {
			b.Gender = "Female"
			if *c.Gender {
				b.Gender = "Male"
			}
		}
		if c.DateOfBirth != nil {
			b.DateOfBirth = c.DateOfBirth.Format(time.DateOnly)
		}
		resp.Characters = append(resp.Characters, b)
	}
	for _, l := range v.Locations {
		resp.Locations = append(resp.Locations, &LocationBrief{
			ID:          l.ID,
			ParentID:    l.ParentID,
			Name:        l.Name,
			Description: l.Description,
			Type:        l.Type,
			Climate:     l.Climate,
			Terrain:     l.Terrain,
		})
	}
	for _, e := range v.Events {
		b := &EventBrief{
			ID:          e.ID,
			LocationID:  e.LocationID,
			Name:        e.Name,
			Description: e.Description,
			Type:        e.Type,
		}
		if e.StartDateTime != nil {
			b.StartDateTime = e.StartDateTime.Format(time.RFC3339)
		}
		if e.EndDateTime != nil {
			b.EndDateTime = e.EndDateTime.Format(time.RFC3339)
		}
		resp.Events = append(resp.Events, b)
	}
	return resp
}

// VerifyKeyResponse API Key 校验结果
type VerifyKeyResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// ToVerifyKeyResponse 转换校验结果
func ToVerifyKeyResponse(v *chain.KeyVerification) *VerifyKeyResponse {
	return &VerifyKeyResponse{Valid: v.Valid, Message: v.Message}
}
