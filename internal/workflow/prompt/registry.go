package prompt

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"gopkg.in/yaml.v3"
)

//go:embed templates/world.yaml
var defaultTable []byte

// Slot 提示词槽位
type Slot string

const (
	SlotMainCharacter         Slot = "MAIN_CHARACTER"
	SlotMainCharacterSkills   Slot = "MAIN_CHARACTER_SKILLS"
	SlotMainCharacterStatuses Slot = "MAIN_CHARACTER_STATUSES"
	SlotLocations             Slot = "LOCATIONS"
	SlotSubLocations          Slot = "SUB_LOCATIONS"
	SlotSurroundingCharacters Slot = "SURROUNDING_CHARACTERS"
	SlotCharacterEvent        Slot = "CHARACTER_EVENT"
	SlotCharacterSkills       Slot = "CHARACTER_SKILLS"
	SlotCharacterStatuses     Slot = "CHARACTER_STATUSES"
	SlotCharacterRelationship Slot = "CHARACTER_RELATIONSHIP"
	SlotCharacterItems        Slot = "CHARACTER_ITEMS"
)

// Slots 全部槽位
var Slots = []Slot{
	SlotMainCharacter,
	SlotMainCharacterSkills,
	SlotMainCharacterStatuses,
	SlotLocations,
	SlotSubLocations,
	SlotSurroundingCharacters,
	SlotCharacterEvent,
	SlotCharacterSkills,
	SlotCharacterStatuses,
	SlotCharacterRelationship,
	SlotCharacterItems,
}

// 模板变量名
const (
	VarSeedData         = "seed_data"
	VarCharacter        = "character"
	VarRelatedCharacter = "related_character"
	VarLocation         = "location"
)

type table struct {
	WorldBuilding map[Slot]string `yaml:"world_building"`
}

// Registry 提示词表，模板文本只在这里出现
type Registry struct {
	texts map[Slot]string

	mu    sync.RWMutex
	cache map[Slot]einoprompt.ChatTemplate
}

// NewRegistry 加载内置提示词表；overridePath 非空时用该文件中的槽位覆盖内置值
func NewRegistry(overridePath string) (*Registry, error) {
	texts, err := parseTable(defaultTable)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded prompt table: %w", err)
	}

	if overridePath != "" {
		raw, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt table %s: %w", overridePath, err)
		}
		overrides, err := parseTable(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt table %s: %w", overridePath, err)
		}
		for slot, text := range overrides {
			texts[slot] = text
		}
	}

	for _, slot := range Slots {
		if strings.TrimSpace(texts[slot]) == "" {
			return nil, fmt.Errorf("prompt slot %s is empty", slot)
		}
	}

	return &Registry{
		texts: texts,
		cache: make(map[Slot]einoprompt.ChatTemplate),
	}, nil
}

func parseTable(raw []byte) (map[Slot]string, error) {
	var t table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	if t.WorldBuilding == nil {
		t.WorldBuilding = make(map[Slot]string)
	}
	return t.WorldBuilding, nil
}

func (r *Registry) ChatTemplate(slot Slot) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[slot]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[slot]; ok {
		return tpl, nil
	}

	text, ok := r.texts[slot]
	if !ok {
		return nil, fmt.Errorf("unknown prompt slot: %s", slot)
	}

	tpl := einoprompt.FromMessages(schema.FString, schema.UserMessage(strings.TrimSpace(text)))
	r.cache[slot] = tpl
	return tpl, nil
}

// Render 填充槽位模板，返回单条用户提示词
func (r *Registry) Render(ctx context.Context, slot Slot, vars map[string]any) (string, error) {
	tpl, err := r.ChatTemplate(slot)
	if err != nil {
		return "", err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", slot, err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("prompt %s rendered no messages", slot)
	}
	return msgs[0].Content, nil
}
