package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOne_Character(t *testing.T) {
	ctx := context.Background()
	text := `Here is your hero:
{"character_name": "Mira", "birth_date": "0998-02-11", "race": "Elf", "gender": "Female",
 "strength": 8, "speed": "12", "agility": 15, "intelligence": 13, "wisdom": 11, "charisma": 10,
 "current_date_time": "1023-05-04"}`

	c, err := ExtractOne[CharacterRecord](ctx, text, "")
	require.NoError(t, err)
	assert.Equal(t, "Mira", c.Name)
	assert.Equal(t, "Elf", c.Race)
	require.NotNil(t, c.Gender)
	assert.False(t, *c.Gender)
	require.NotNil(t, c.DateOfBirth)
	assert.Equal(t, 998, c.DateOfBirth.Year())
	require.NotNil(t, c.Speed)
	assert.Equal(t, 12.0, *c.Speed)
	require.NotNil(t, c.CurrentDateTime)
	assert.True(t, c.CurrentDateTime.Equal(time.Date(1023, 5, 4, 0, 0, 0, 0, time.UTC)))
}

func TestExtractOne_Failures(t *testing.T) {
	ctx := context.Background()

	_, err := ExtractOne[CharacterRecord](ctx, "no json", "")
	assert.ErrorIs(t, err, ErrExtraction)

	_, err = ExtractOne[CharacterRecord](ctx, `{"race": "Orc"}`, "")
	assert.ErrorIs(t, err, ErrExtraction, "name is required")

	_, err = ExtractOne[EventRecord](ctx, `{"event": {"name": "Siege"}}`, "event")
	assert.ErrorIs(t, err, ErrExtraction, "role is required")
}

func TestExtractOne_RelationshipDefaults(t *testing.T) {
	r, err := ExtractOne[RelationshipRecord](context.Background(), `{"type":"rival","trust":2}`, "")
	require.NoError(t, err)
	assert.Equal(t, "rival", r.Type)
	assert.Equal(t, 2.0, Float(r.Trust, 5))
	assert.Equal(t, 5.0, Float(r.Attraction, 5))
	assert.Nil(t, r.Familiarity)
}

func TestExtractMany(t *testing.T) {
	ctx := context.Background()

	t.Run("drops invalid elements", func(t *testing.T) {
		items, err := ExtractMany[ItemRecord](ctx, `[{"name": "Rope", "quantity": 2}, {"type": "junk"}]`, "")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Rope", items[0].Name)
		assert.Equal(t, 2.0, Float(items[0].Quantity, 1))
		assert.Equal(t, 100.0, Float(items[0].Condition, 100))
	})

	t.Run("empty list is not an error", func(t *testing.T) {
		skills, err := ExtractMany[SkillRecord](ctx, "[]", "")
		require.NoError(t, err)
		assert.Empty(t, skills)
	})

	t.Run("all invalid", func(t *testing.T) {
		_, err := ExtractMany[StatusRecord](ctx, `[{"duration": 3}]`, "")
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("not a list", func(t *testing.T) {
		_, err := ExtractMany[LocationRecord](ctx, `{"name": "Vale"}`, "")
		assert.ErrorIs(t, err, ErrExtraction)
	})
}

func TestIsAuthenticationError(t *testing.T) {
	assert.False(t, IsAuthenticationError(assert.AnError))
	assert.True(t, IsAuthenticationError(errString("error, status code: 401, message: Incorrect API key provided")))
	assert.False(t, IsAuthenticationError(nil))
	assert.True(t, IsRateLimitError(errString("status code: 429")))
}

type errString string

func (e errString) Error() string { return string(e) }
