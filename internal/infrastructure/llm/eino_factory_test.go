package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"world-forge-api/internal/config"
	"world-forge-api/internal/workflow/port"
)

func testConfig(apiKey string) *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			DefaultProvider: "openai",
			Providers: map[string]config.ProviderConfig{
				"openai": {
					APIKey:      apiKey,
					BaseURL:     "http://127.0.0.1:1/v1",
					Model:       "gpt-4o-mini",
					MaxTokens:   512,
					Temperature: 0.7,
					Timeout:     time.Second,
				},
			},
		},
	}
}

func TestEinoFactory_GetCachesDefault(t *testing.T) {
	f := NewEinoFactory(testConfig("sk-test"))
	ctx := context.Background()

	a, err := f.Get(ctx, "")
	require.NoError(t, err)
	b, err := f.Get(ctx, "openai")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = f.Get(ctx, "anthropic")
	assert.Error(t, err)
}

func TestEinoFactory_NewUsesRequestCredential(t *testing.T) {
	f := NewEinoFactory(testConfig(""))
	ctx := context.Background()

	_, err := f.Get(ctx, "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	m, err := f.New(ctx, "", port.Credentials{APIKey: "sk-request", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.NotNil(t, m)

	other, err := f.New(ctx, "", port.Credentials{APIKey: "sk-request"})
	require.NoError(t, err)
	assert.NotSame(t, m, other, "request models are not cached")
}
