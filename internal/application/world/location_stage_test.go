package world

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"world-forge-api/internal/workflow/prompt"
)

func TestLocationStage_TopLevelAndSubLocations(t *testing.T) {
	gen := newScripted().
		on(prompt.SlotLocations, ok(locationsJSON)).
		on(prompt.SlotSubLocations, ok(subLocationsJSON))
	f := newFixture(t, gen, nil)

	placed, res := NewLocationStage(f.env).Run(context.Background())
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	require.Len(t, placed, 2)
	assert.Equal(t, 2, res.Details["locations"])
	assert.Equal(t, 6, res.Details["sub_locations"])

	locs := f.store.Snapshot().Locations
	require.Len(t, locs, 8)

	topIDs := map[string]bool{placed[0].ID: true, placed[1].ID: true}
	children := map[string]int{}
	for _, l := range locs {
		assert.Equal(t, f.env.SeedID, l.SeedID)
		if l.IsTopLevel() {
			assert.True(t, topIDs[l.ID])
			continue
		}
		assert.True(t, topIDs[*l.ParentID], "sub-location must point at a top-level location")
		children[*l.ParentID]++
	}
	assert.Equal(t, 3, children[placed[0].ID])
	assert.Equal(t, 3, children[placed[1].ID])
}

func TestLocationStage_RetriesMalformedTopLevel(t *testing.T) {
	gen := newScripted().
		on(prompt.SlotLocations, ok("sorry, no idea"), ok("[]"), ok(locationsJSON)).
		on(prompt.SlotSubLocations, ok("[]"))
	f := newFixture(t, gen, nil)

	placed, res := NewLocationStage(f.env).Run(context.Background())
	require.Equal(t, StatusSuccess, res.Status)
	assert.Len(t, placed, 2)
	assert.Equal(t, 3, gen.count(prompt.SlotLocations))
	assert.Len(t, f.store.Snapshot().Locations, 2)
}

func TestLocationStage_ExhaustedTopLevelFails(t *testing.T) {
	gen := newScripted().on(prompt.SlotLocations, ok("not json"))
	f := newFixture(t, gen, nil)

	placed, res := NewLocationStage(f.env).Run(context.Background())
	assert.Equal(t, StatusFailure, res.Status)
	assert.Contains(t, res.Message, "Failed to create locations")
	assert.Nil(t, placed)
	assert.Equal(t, DefaultMaxAttempts, gen.count(prompt.SlotLocations))
	assert.Equal(t, 0, gen.count(prompt.SlotSubLocations))
	assert.Empty(t, f.store.Snapshot().Locations)
}

func TestLocationStage_SubLocationFailureIsSkipped(t *testing.T) {
	bad := make([]reply, DefaultMaxAttempts)
	for i := range bad {
		bad[i] = ok("{broken")
	}
	gen := newScripted().
		on(prompt.SlotLocations, ok(locationsJSON)).
		on(prompt.SlotSubLocations, append(bad, ok(subLocationsJSON))...)
	f := newFixture(t, gen, nil)

	placed, res := NewLocationStage(f.env).Run(context.Background())
	require.Equal(t, StatusSuccess, res.Status)
	require.Len(t, placed, 2)
	assert.Equal(t, 1, res.Details["locations_without_sub_locations"])
	assert.Equal(t, 3, res.Details["sub_locations"])
	assert.Len(t, f.store.Snapshot().Locations, 5)
}
