package world

import (
	"context"
	"time"

	"world-forge-api/pkg/logger"
	"world-forge-api/pkg/metrics"
)

type step struct {
	name string
	run  func(ctx context.Context, st *State) StageResult
}

// Orchestrator 按固定顺序执行全部阶段，任何阶段失败都不会中断后续阶段
type Orchestrator struct {
	env        *Env
	locations  *LocationStage
	characters *CharacterStage
}

func NewOrchestrator(env *Env) *Orchestrator {
	return &Orchestrator{
		env:        env,
		locations:  NewLocationStage(env),
		characters: NewCharacterStage(env),
	}
}

// Build 执行一次完整的世界构建并返回报告
func (o *Orchestrator) Build(ctx context.Context) Report {
	ctx = logger.WithContext(ctx, logger.SeedIDKey, o.env.SeedID)
	start := time.Now()

	st := &State{}
	report := make(Report, len(o.steps()))
	for _, s := range o.steps() {
		s := s
		report[s.name] = guard(ctx, s.name, func(ctx context.Context) StageResult {
			return s.run(ctx, st)
		})
	}

	outcome := "complete"
	if !report.Succeeded() {
		outcome = "partial"
	}
	metrics.WorldBuildTotal.WithLabelValues(outcome).Inc()
	metrics.WorldBuildDuration.Observe(time.Since(start).Seconds())
	logger.Info(ctx, "world build finished",
		"outcome", outcome,
		"characters", len(st.NPCs),
		"locations", len(st.Locations),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report
}

func (o *Orchestrator) steps() []step {
	return []step{
		{StageMainCharacter, func(ctx context.Context, st *State) StageResult {
			p, res := o.characters.CreateProtagonist(ctx)
			st.Protagonist = p
			return res
		}},
		{StageMainCharacterSkills, func(ctx context.Context, st *State) StageResult {
			return o.characters.CreateProtagonistSkills(ctx, st.Protagonist)
		}},
		{StageMainCharacterStatuses, func(ctx context.Context, st *State) StageResult {
			return o.characters.CreateProtagonistStatuses(ctx, st.Protagonist)
		}},
		{StageLocations, func(ctx context.Context, st *State) StageResult {
			locs, res := o.locations.Run(ctx)
			st.Locations = locs
			return res
		}},
		{StageSurroundingCharacters, func(ctx context.Context, st *State) StageResult {
			npcs, res := o.characters.CreateNPCs(ctx, st.Protagonist, st.Locations)
			st.NPCs = npcs
			return res
		}},
		{StageSurroundingCharactersSkills, func(ctx context.Context, st *State) StageResult {
			return o.characters.CreateNPCSkills(ctx, st.NPCs)
		}},
		{StageSurroundingCharactersStatuses, func(ctx context.Context, st *State) StageResult {
			return o.characters.CreateNPCStatuses(ctx, st.NPCs)
		}},
		{StageSurroundingCharactersRelationships, func(ctx context.Context, st *State) StageResult {
			return o.characters.CreateNPCRelationships(ctx, st.NPCs)
		}},
		{StageSurroundingCharactersItems, func(ctx context.Context, st *State) StageResult {
			return o.characters.CreateNPCItems(ctx, st.NPCs)
		}},
	}
}

// StageOrder 报告中阶段的执行顺序
func StageOrder() []string {
	return []string{
		StageMainCharacter,
		StageMainCharacterSkills,
		StageMainCharacterStatuses,
		StageLocations,
		StageSurroundingCharacters,
		StageSurroundingCharactersSkills,
		StageSurroundingCharactersStatuses,
		StageSurroundingCharactersRelationships,
		StageSurroundingCharactersItems,
	}
}
