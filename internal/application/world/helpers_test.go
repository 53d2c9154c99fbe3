package world

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"world-forge-api/internal/domain/entity"
	"world-forge-api/internal/domain/repository"
	"world-forge-api/internal/infrastructure/persistence/memory"
	portmock "world-forge-api/internal/workflow/port/mock"
	"world-forge-api/internal/workflow/prompt"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// slotRenderer 把槽位名和变量原样拼进提示词，便于按槽位应答
type slotRenderer struct{}

func (slotRenderer) Render(_ context.Context, slot prompt.Slot, vars map[string]any) (string, error) {
	raw, err := json.Marshal(vars)
	if err != nil {
		return "", err
	}
	return string(slot) + "|" + string(raw), nil
}

func slotOf(p string) prompt.Slot {
	return prompt.Slot(strings.SplitN(p, "|", 2)[0])
}

type reply struct {
	text string
	err  error
}

func ok(text string) reply { return reply{text: text} }

// scripted 按槽位依次返回预置应答，用完后重复最后一条
type scripted struct {
	mu      sync.Mutex
	replies map[prompt.Slot][]reply
	calls   map[prompt.Slot]int
	prompts map[prompt.Slot][]string
}

func newScripted() *scripted {
	return &scripted{
		replies: make(map[prompt.Slot][]reply),
		calls:   make(map[prompt.Slot]int),
		prompts: make(map[prompt.Slot][]string),
	}
}

func (s *scripted) on(slot prompt.Slot, rs ...reply) *scripted {
	s.replies[slot] = rs
	return s
}

func (s *scripted) generate(_ context.Context, p string) (string, error) {
	slot := slotOf(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.calls[slot]
	s.calls[slot]++
	s.prompts[slot] = append(s.prompts[slot], p)

	rs := s.replies[slot]
	if len(rs) == 0 {
		return "", fmt.Errorf("no reply scripted for %s", slot)
	}
	if n >= len(rs) {
		n = len(rs) - 1
	}
	return rs[n].text, rs[n].err
}

func (s *scripted) count(slot prompt.Slot) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[slot]
}

// fixedRoller 总是返回 min(value, size)
type fixedRoller struct {
	value int
}

func (r *fixedRoller) Roll(size int) (int, error) {
	if r.value > size {
		return size, nil
	}
	if r.value < 1 {
		return 1, nil
	}
	return r.value, nil
}

func (r *fixedRoller) RollN(count, size int) ([]int, error) {
	out := make([]int, count)
	for i := range out {
		out[i], _ = r.Roll(size)
	}
	return out, nil
}

type fixture struct {
	store *memory.Store
	sess  repository.Session
	env   *Env
	gen   *scripted
}

func newFixture(t *testing.T, gen *scripted, roller dice.Roller) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	sess, err := store.Open(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	seed := &entity.Seed{}
	require.NoError(t, sess.CreateSeed(ctx, seed))
	require.NoError(t, sess.Commit(ctx))

	ctrl := gomock.NewController(t)
	mockGen := portmock.NewMockGenerator(ctrl)
	mockGen.EXPECT().Generate(gomock.Any(), gomock.Any()).DoAndReturn(gen.generate).AnyTimes()

	if roller == nil {
		roller = dice.DefaultRoller
	}
	return &fixture{
		store: store,
		sess:  sess,
		gen:   gen,
		env: &Env{
			SeedID:               seed.ID,
			SeedData:             "a drowned archipelago ruled by tide priests",
			Runner:               NewRunner(sess, DefaultMaxAttempts),
			Gen:                  mockGen,
			Prompts:              slotRenderer{},
			Roller:               roller,
			Now:                  func() time.Time { return testNow },
			MaxRelationshipPairs: DefaultMaxRelationshipPairs,
		},
	}
}

func npcRecordJSON(names ...string) string {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf(`{"character_name": %q, "character_race": "Human", "character_gender": "Male"}`, n))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

const (
	protagonistJSON = `Here is your hero:
{"character_name": "Aria", "birth_date": "1990-05-01", "character_race": "Elf",
 "character_gender": "Female", "strength": 12, "current_date_time": "2024-02-29"}`
	locationsJSON    = `[{"name": "Saltmere", "description": "port"}, {"name": "Gloomwood", "description": "forest"}]`
	subLocationsJSON = `[{"name": "Docks"}, {"name": "Market"}, {"name": "Lighthouse"}]`
	eventJSON        = `{"event": {"event_name": "Shipwreck", "event_description": "lost at sea", "event_type": "disaster", "event_role": "survivor"}}`
	skillsJSON       = `[{"name": "Swimming", "description": "stays afloat"}, {"name": "Haggling"}]`
	statusesJSON     = `[{"name": "Soaked", "type": "debuff", "duration": 2}]`
	itemsJSON        = `[{"name": "Rope", "value": 3, "weight": 1.5}, {"name": "Compass", "quantity": 2, "condition": 80}]`
	relationshipJSON = `{"relationship": {"type": "rival", "trust": 2}}`
)
