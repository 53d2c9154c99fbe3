package world

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"world-forge-api/internal/domain/entity"
	wfnode "world-forge-api/internal/workflow/node"
	"world-forge-api/internal/workflow/prompt"
)

func placeLocations(t *testing.T, f *fixture) []PlacedLocation {
	t.Helper()
	f.gen.on(prompt.SlotLocations, ok(locationsJSON)).on(prompt.SlotSubLocations, ok("[]"))
	placed, res := NewLocationStage(f.env).Run(context.Background())
	require.Equal(t, StatusSuccess, res.Status)
	return placed
}

func TestCreateProtagonist(t *testing.T) {
	gen := newScripted().on(prompt.SlotMainCharacter, ok(protagonistJSON))
	f := newFixture(t, gen, nil)

	p, res := NewCharacterStage(f.env).CreateProtagonist(context.Background())
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	require.NotNil(t, p)
	assert.Equal(t, p.ID, res.Details["character_id"])

	snap := f.store.Snapshot()
	require.Len(t, snap.Characters, 1)
	c := snap.Characters[0]
	assert.True(t, c.MainCharacter)
	assert.True(t, c.Alive)
	assert.Equal(t, "Aria", c.Name)
	assert.Equal(t, "Elf", c.Race)
	require.NotNil(t, c.Gender)
	assert.False(t, *c.Gender)
	require.NotNil(t, c.DateOfBirth)
	assert.Equal(t, "1990-05-01", c.DateOfBirth.Format(wfnode.DateLayout))
	assert.Equal(t, 1, c.Level)
	assert.Equal(t, 0, c.ExpPoints)
	assert.Equal(t, 100, c.CurrentHealth)
	assert.Equal(t, 100, c.MaxHealth)
	assert.Equal(t, 0, c.CurrentCurrency)

	assert.Equal(t, 12, c.Abilities.Strength)
	for _, v := range []int{c.Abilities.Speed, c.Abilities.Agility, c.Abilities.Intelligence, c.Abilities.Wisdom, c.Abilities.Charisma} {
		assert.GreaterOrEqual(t, v, 8)
		assert.LessOrEqual(t, v, 16)
	}

	require.Len(t, snap.Seeds, 1)
	require.NotNil(t, snap.Seeds[0].CurrentDateTime)
	assert.Equal(t, "2024-02-29", snap.Seeds[0].CurrentDateTime.Format(wfnode.DateLayout))
}

func TestCreateProtagonist_ExtractionExhausted(t *testing.T) {
	gen := newScripted().on(prompt.SlotMainCharacter, ok(`{"race": "Elf"}`))
	f := newFixture(t, gen, nil)

	p, res := NewCharacterStage(f.env).CreateProtagonist(context.Background())
	assert.Nil(t, p)
	assert.Equal(t, StatusFailure, res.Status)
	assert.Equal(t, DefaultMaxAttempts, gen.count(prompt.SlotMainCharacter))
	assert.Empty(t, f.store.Snapshot().Characters)
}

func TestProtagonistSkillsAndStatuses(t *testing.T) {
	gen := newScripted().
		on(prompt.SlotMainCharacter, ok(protagonistJSON)).
		on(prompt.SlotMainCharacterSkills, ok(skillsJSON)).
		on(prompt.SlotMainCharacterStatuses, ok(statusesJSON))
	f := newFixture(t, gen, nil)
	stage := NewCharacterStage(f.env)
	ctx := context.Background()

	p, res := stage.CreateProtagonist(ctx)
	require.Equal(t, StatusSuccess, res.Status)

	res = stage.CreateProtagonistSkills(ctx, p)
	require.Equal(t, StatusSuccess, res.Status)
	res = stage.CreateProtagonistStatuses(ctx, p)
	require.Equal(t, StatusSuccess, res.Status)

	snap := f.store.Snapshot()
	require.Len(t, snap.Skills, 2)
	require.Len(t, snap.CharacterSkills, 2)
	for _, cs := range snap.CharacterSkills {
		assert.Equal(t, p.ID, cs.CharacterID)
		assert.Equal(t, 1, cs.Level)
		assert.Equal(t, 0, cs.ExpPoints)
	}

	require.Len(t, snap.CharacterStatuses, 1)
	st := snap.CharacterStatuses[0]
	assert.True(t, st.Active)
	require.NotNil(t, st.EndDateTime)
	assert.Equal(t, testNow.Add(2*time.Hour), *st.EndDateTime)

	assert.Contains(t, gen.prompts[prompt.SlotMainCharacterSkills][0], `\"name\":\"Aria\"`)
}

func TestProtagonistDependents_WithoutProtagonist(t *testing.T) {
	f := newFixture(t, newScripted(), nil)
	stage := NewCharacterStage(f.env)

	assert.Equal(t, StatusFailure, stage.CreateProtagonistSkills(context.Background(), nil).Status)
	assert.Equal(t, StatusFailure, stage.CreateProtagonistStatuses(context.Background(), nil).Status)
}

func TestCreateNPCs_LevelsAndExperience(t *testing.T) {
	for level, xp := range map[int]int{1: 0, 2: 100, 3: 300} {
		t.Run(fmt.Sprintf("level_%d", level), func(t *testing.T) {
			gen := newScripted().
				on(prompt.SlotSurroundingCharacters, ok(npcRecordJSON("Bram"))).
				on(prompt.SlotCharacterEvent, ok(eventJSON))
			f := newFixture(t, gen, &fixedRoller{value: level})
			locs := placeLocations(t, f)

			npcs, res := NewCharacterStage(f.env).CreateNPCs(context.Background(), nil, locs[:1])
			require.Equal(t, StatusSuccess, res.Status, res.Message)
			require.Len(t, npcs, 1)

			var npc *entity.Character
			for _, c := range f.store.Snapshot().Characters {
				if c.ID == npcs[0].ID {
					npc = c
				}
			}
			require.NotNil(t, npc)
			assert.False(t, npc.MainCharacter)
			assert.Equal(t, level, npc.Level)
			assert.Equal(t, xp, npc.ExpPoints)
			assert.Equal(t, 100*level, npc.CurrentHealth)
			assert.Equal(t, 100*level, npc.MaxHealth)
			assert.GreaterOrEqual(t, npc.Abilities.Strength, 4+level)
			assert.LessOrEqual(t, npc.Abilities.Strength, 16+level)
			assert.GreaterOrEqual(t, npc.CurrentCurrency, 0)
			assert.LessOrEqual(t, npc.CurrentCurrency, 1000)
		})
	}
}

func TestCreateNPCs_AnchorEvents(t *testing.T) {
	gen := newScripted().
		on(prompt.SlotMainCharacter, ok(protagonistJSON)).
		on(prompt.SlotSurroundingCharacters, ok(npcRecordJSON("Bram", "Cora"))).
		on(prompt.SlotCharacterEvent, ok(eventJSON))
	f := newFixture(t, gen, nil)
	ctx := context.Background()
	stage := NewCharacterStage(f.env)

	p, res := stage.CreateProtagonist(ctx)
	require.Equal(t, StatusSuccess, res.Status)
	locs := placeLocations(t, f)

	npcs, res := stage.CreateNPCs(ctx, p, locs)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	require.Len(t, npcs, 4)
	assert.Equal(t, 4, res.Details["characters"])

	snap := f.store.Snapshot()
	require.Len(t, snap.Events, 4)
	require.Len(t, snap.EventCharacters, 4)

	locIDs := map[string]bool{locs[0].ID: true, locs[1].ID: true}
	for _, ev := range snap.Events {
		assert.True(t, locIDs[ev.LocationID])
		assert.Equal(t, "Shipwreck", ev.Name)
		assert.Equal(t, entity.InitialTurn, ev.StartTurn)
		assert.Equal(t, entity.InitialTurn, ev.EndTurn)
		require.NotNil(t, ev.StartDateTime)
		require.NotNil(t, ev.EndDateTime)
		assert.Equal(t, *p.CurrentDateTime, *ev.EndDateTime)
		offset := ev.EndDateTime.Sub(*ev.StartDateTime)
		assert.GreaterOrEqual(t, offset, time.Hour)
		assert.LessOrEqual(t, offset, 5*time.Hour)
	}
	for _, ec := range snap.EventCharacters {
		assert.Equal(t, "survivor", ec.Role)
	}
	for _, npc := range npcs {
		assert.True(t, locIDs[npc.LocationID])
	}
}

func TestCreateNPCs_EventTimesUnknownWithoutProtagonist(t *testing.T) {
	gen := newScripted().
		on(prompt.SlotSurroundingCharacters, ok(npcRecordJSON("Bram"))).
		on(prompt.SlotCharacterEvent, ok(eventJSON))
	f := newFixture(t, gen, nil)
	locs := placeLocations(t, f)

	_, res := NewCharacterStage(f.env).CreateNPCs(context.Background(), nil, locs[:1])
	require.Equal(t, StatusSuccess, res.Status)

	events := f.store.Snapshot().Events
	require.Len(t, events, 1)
	assert.Nil(t, events[0].StartDateTime)
	assert.Nil(t, events[0].EndDateTime)
}

func TestCreateNPCs_NoLocations(t *testing.T) {
	f := newFixture(t, newScripted(), nil)

	npcs, res := NewCharacterStage(f.env).CreateNPCs(context.Background(), nil, nil)
	assert.Nil(t, npcs)
	assert.Equal(t, StatusFailure, res.Status)
}

func TestCreateNPCs_MissingEventRollsBackBatch(t *testing.T) {
	gen := newScripted().
		on(prompt.SlotSurroundingCharacters, ok(npcRecordJSON("Bram"))).
		on(prompt.SlotCharacterEvent, ok(`{"event": {"event_name": "No role"}}`), ok(eventJSON))
	f := newFixture(t, gen, nil)
	locs := placeLocations(t, f)

	npcs, res := NewCharacterStage(f.env).CreateNPCs(context.Background(), nil, locs[:1])
	require.Equal(t, StatusSuccess, res.Status)
	require.Len(t, npcs, 1)

	snap := f.store.Snapshot()
	assert.Len(t, snap.Characters, 1, "first attempt's character is rolled back")
	assert.Len(t, snap.Events, 1)
}

func TestNPCSkillsStatusesItems(t *testing.T) {
	gen := newScripted().
		on(prompt.SlotSurroundingCharacters, ok(npcRecordJSON("Bram", "Cora"))).
		on(prompt.SlotCharacterEvent, ok(eventJSON)).
		on(prompt.SlotCharacterSkills, ok(skillsJSON), ok("no skills here")).
		on(prompt.SlotCharacterStatuses, ok(statusesJSON)).
		on(prompt.SlotCharacterItems, ok(itemsJSON))
	f := newFixture(t, gen, nil)
	ctx := context.Background()
	stage := NewCharacterStage(f.env)
	locs := placeLocations(t, f)

	npcs, res := stage.CreateNPCs(ctx, nil, locs[:1])
	require.Equal(t, StatusSuccess, res.Status)
	require.Len(t, npcs, 2)

	res = stage.CreateNPCSkills(ctx, npcs)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, 2, res.Details["records"])
	assert.Equal(t, 1, res.Details["skipped_characters"])

	res = stage.CreateNPCStatuses(ctx, npcs)
	require.Equal(t, StatusSuccess, res.Status)
	res = stage.CreateNPCItems(ctx, npcs)
	require.Equal(t, StatusSuccess, res.Status)

	snap := f.store.Snapshot()
	require.Len(t, snap.CharacterSkills, 2)
	for _, cs := range snap.CharacterSkills {
		assert.Equal(t, npcs[0].ID, cs.CharacterID)
		assert.GreaterOrEqual(t, cs.Level, 1)
		assert.LessOrEqual(t, cs.Level, 5)
		assert.GreaterOrEqual(t, cs.ExpPoints, 0)
		assert.LessOrEqual(t, cs.ExpPoints, 100)
	}

	require.Len(t, snap.CharacterStatuses, 2)
	for _, cs := range snap.CharacterStatuses {
		assert.True(t, cs.Active)
		assert.Equal(t, testNow.Add(2*time.Hour), *cs.EndDateTime)
	}

	require.Len(t, snap.Items, 4)
	require.Len(t, snap.CharacterItems, 4)
	byItem := map[string]*entity.Item{}
	for _, it := range snap.Items {
		byItem[it.ID] = it
	}
	for _, ci := range snap.CharacterItems {
		switch byItem[ci.ItemID].Name {
		case "Rope":
			assert.Equal(t, 1, ci.Quantity)
			assert.Equal(t, 100.0, ci.Condition)
			assert.Equal(t, 3.0, byItem[ci.ItemID].Value)
		case "Compass":
			assert.Equal(t, 2, ci.Quantity)
			assert.Equal(t, 80.0, ci.Condition)
			assert.Equal(t, 0.0, byItem[ci.ItemID].Weight)
		default:
			t.Fatalf("unexpected item %q", byItem[ci.ItemID].Name)
		}
	}
}

func TestNPCPasses_WithoutNPCs(t *testing.T) {
	f := newFixture(t, newScripted(), nil)
	stage := NewCharacterStage(f.env)
	ctx := context.Background()

	assert.Equal(t, StatusFailure, stage.CreateNPCSkills(ctx, nil).Status)
	assert.Equal(t, StatusFailure, stage.CreateNPCStatuses(ctx, nil).Status)
	assert.Equal(t, StatusFailure, stage.CreateNPCItems(ctx, nil).Status)
}

func TestNPCSkills_AllCharactersFailRetriesPass(t *testing.T) {
	gen := newScripted().
		on(prompt.SlotSurroundingCharacters, ok(npcRecordJSON("Bram"))).
		on(prompt.SlotCharacterEvent, ok(eventJSON)).
		on(prompt.SlotCharacterSkills, ok("nothing"), ok(skillsJSON))
	f := newFixture(t, gen, nil)
	ctx := context.Background()
	stage := NewCharacterStage(f.env)
	locs := placeLocations(t, f)

	npcs, _ := stage.CreateNPCs(ctx, nil, locs[:1])
	res := stage.CreateNPCSkills(ctx, npcs)
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 2, gen.count(prompt.SlotCharacterSkills))
	assert.Len(t, f.store.Snapshot().CharacterSkills, 2)
}

func TestCreateNPCRelationships(t *testing.T) {
	gen := newScripted().
		on(prompt.SlotSurroundingCharacters, ok(npcRecordJSON("Bram", "Cora", "Dax"))).
		on(prompt.SlotCharacterEvent, ok(eventJSON)).
		on(prompt.SlotCharacterRelationship, ok(relationshipJSON))
	f := newFixture(t, gen, nil)
	ctx := context.Background()
	stage := NewCharacterStage(f.env)
	locs := placeLocations(t, f)

	npcs, _ := stage.CreateNPCs(ctx, nil, locs[:1])
	require.Len(t, npcs, 3)

	res := stage.CreateNPCRelationships(ctx, npcs)
	require.Equal(t, StatusSuccess, res.Status, res.Message)

	rels := f.store.Snapshot().Relationships
	require.Len(t, rels, 3)
	seen := map[[2]string]bool{}
	for _, r := range rels {
		assert.NotEqual(t, r.CharacterID, r.RelatedCharacterID)
		key := [2]string{r.CharacterID, r.RelatedCharacterID}
		if r.CharacterID > r.RelatedCharacterID {
			key = [2]string{r.RelatedCharacterID, r.CharacterID}
		}
		assert.False(t, seen[key], "pair sampled twice")
		seen[key] = true

		assert.Equal(t, "rival", r.RelationshipType)
		assert.Equal(t, 2, r.Trust)
		assert.Equal(t, 5, r.Attraction)
		assert.Equal(t, 5, r.Respect)
		assert.Equal(t, 5, r.Anger)
		assert.Equal(t, 5, r.Fear)
		assert.Equal(t, 0, r.Familiarity)
	}
}

func TestCreateNPCRelationships_SkipsUnreadablePair(t *testing.T) {
	gen := newScripted().
		on(prompt.SlotSurroundingCharacters, ok(npcRecordJSON("Bram", "Cora", "Dax"))).
		on(prompt.SlotCharacterEvent, ok(eventJSON)).
		on(prompt.SlotCharacterRelationship, ok("garbage"), ok(relationshipJSON))
	f := newFixture(t, gen, nil)
	ctx := context.Background()
	stage := NewCharacterStage(f.env)
	locs := placeLocations(t, f)

	npcs, _ := stage.CreateNPCs(ctx, nil, locs[:1])
	require.Len(t, npcs, 3)

	res := stage.CreateNPCRelationships(ctx, npcs)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, 2, res.Details["records"])
	assert.Equal(t, 1, res.Details["skipped_pairs"])
	assert.Equal(t, 3, gen.count(prompt.SlotCharacterRelationship))

	rels := f.store.Snapshot().Relationships
	require.Len(t, rels, 2)
	for _, r := range rels {
		assert.Equal(t, "rival", r.RelationshipType)
		assert.Equal(t, 2, r.Trust)
		assert.Equal(t, 5, r.Attraction)
	}
}

func TestCreateNPCRelationships_AllPairsUnreadableRetriesPass(t *testing.T) {
	gen := newScripted().
		on(prompt.SlotSurroundingCharacters, ok(npcRecordJSON("Bram", "Cora"))).
		on(prompt.SlotCharacterEvent, ok(eventJSON)).
		on(prompt.SlotCharacterRelationship, ok("garbage"))
	f := newFixture(t, gen, nil)
	ctx := context.Background()
	stage := NewCharacterStage(f.env)
	locs := placeLocations(t, f)

	npcs, _ := stage.CreateNPCs(ctx, nil, locs[:1])
	require.Len(t, npcs, 2)

	res := stage.CreateNPCRelationships(ctx, npcs)
	assert.Equal(t, StatusFailure, res.Status)
	assert.Equal(t, DefaultMaxAttempts, gen.count(prompt.SlotCharacterRelationship))
	assert.Empty(t, f.store.Snapshot().Relationships)
}

func TestCreateNPCRelationships_TooFewCharacters(t *testing.T) {
	gen := newScripted()
	f := newFixture(t, gen, nil)

	res := NewCharacterStage(f.env).CreateNPCRelationships(context.Background(), []PlacedNPC{{ID: "only"}})
	assert.Equal(t, StatusFailure, res.Status)
	assert.Equal(t, 0, gen.count(prompt.SlotCharacterRelationship))
}

func TestSamplePairs(t *testing.T) {
	f := newFixture(t, newScripted(), nil)

	for _, tc := range []struct {
		n, limit, want int
	}{
		{n: 2, limit: 10, want: 1},
		{n: 4, limit: 10, want: 6},
		{n: 5, limit: 10, want: 10},
		{n: 8, limit: 10, want: 10},
		{n: 8, limit: 3, want: 3},
	} {
		pairs, err := samplePairs(f.env, tc.n, tc.limit)
		require.NoError(t, err)
		require.Len(t, pairs, tc.want)

		seen := map[[2]int]bool{}
		for _, p := range pairs {
			assert.Less(t, p[0], p[1])
			assert.GreaterOrEqual(t, p[0], 0)
			assert.Less(t, p[1], tc.n)
			assert.False(t, seen[p])
			seen[p] = true
		}
	}
}

func TestAffectClamp(t *testing.T) {
	v := func(f float64) *float64 { return &f }
	assert.Equal(t, 5, affect(nil, entity.AffectNeutral))
	assert.Equal(t, 0, affect(nil, entity.FamiliarityDefault))
	assert.Equal(t, 10, affect(v(14), entity.AffectNeutral))
	assert.Equal(t, 0, affect(v(-3), entity.AffectNeutral))
	assert.Equal(t, 7, affect(v(6.6), entity.AffectNeutral))
}
