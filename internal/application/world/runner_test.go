package world

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"world-forge-api/internal/domain/entity"
	"world-forge-api/internal/domain/repository"
	"world-forge-api/internal/infrastructure/persistence/memory"
	wfnode "world-forge-api/internal/workflow/node"
)

func openSession(t *testing.T) (*memory.Store, repository.Session) {
	t.Helper()
	store := memory.NewStore()
	sess, err := store.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return store, sess
}

func TestRunner_CommitsOnSuccess(t *testing.T) {
	store, sess := openSession(t)
	runner := NewRunner(sess, 3)

	err := runner.Attempt(context.Background(), "test", func(ctx context.Context, sess repository.Session) error {
		return sess.CreateLocation(ctx, &entity.Location{SeedID: "s", Name: "Harbor"})
	})
	require.NoError(t, err)
	require.Len(t, store.Snapshot().Locations, 1)
}

func TestRunner_RollsBackFailedAttempts(t *testing.T) {
	store, sess := openSession(t)
	runner := NewRunner(sess, 5)

	calls := 0
	err := runner.Attempt(context.Background(), "test", func(ctx context.Context, sess repository.Session) error {
		calls++
		if err := sess.CreateLocation(ctx, &entity.Location{SeedID: "s", Name: fmt.Sprintf("try-%d", calls)}); err != nil {
			return err
		}
		if calls < 3 {
			return fmt.Errorf("%w: garbled", wfnode.ErrExtraction)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	locs := store.Snapshot().Locations
	require.Len(t, locs, 1)
	assert.Equal(t, "try-3", locs[0].Name)
}

func TestRunner_Exhaustion(t *testing.T) {
	store, sess := openSession(t)
	runner := NewRunner(sess, 0)

	calls := 0
	err := runner.Attempt(context.Background(), "locations", func(ctx context.Context, sess repository.Session) error {
		calls++
		_ = sess.CreateLocation(ctx, &entity.Location{SeedID: "s", Name: "never"})
		return wfnode.ErrExtraction
	})
	require.Error(t, err)
	assert.Equal(t, DefaultMaxAttempts, calls)

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "locations", exhausted.Stage)
	assert.Equal(t, DefaultMaxAttempts, exhausted.Attempts)
	assert.ErrorIs(t, err, wfnode.ErrExtraction)
	assert.Empty(t, store.Snapshot().Locations)
}

func TestRunner_PanicIsRetried(t *testing.T) {
	store, sess := openSession(t)
	runner := NewRunner(sess, 3)

	calls := 0
	err := runner.Attempt(context.Background(), "test", func(ctx context.Context, sess repository.Session) error {
		calls++
		if calls == 1 {
			var m map[string]int
			m["boom"] = 1
		}
		return sess.CreateLocation(ctx, &entity.Location{SeedID: "s", Name: "after panic"})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, store.Snapshot().Locations, 1)
}

func TestRunner_EarlierCommitsSurvive(t *testing.T) {
	store, sess := openSession(t)
	runner := NewRunner(sess, 2)
	ctx := context.Background()

	require.NoError(t, runner.Attempt(ctx, "first", func(ctx context.Context, sess repository.Session) error {
		return sess.CreateLocation(ctx, &entity.Location{SeedID: "s", Name: "kept"})
	}))
	err := runner.Attempt(ctx, "second", func(ctx context.Context, sess repository.Session) error {
		_ = sess.CreateLocation(ctx, &entity.Location{SeedID: "s", Name: "dropped"})
		return errors.New("store unavailable")
	})
	require.Error(t, err)

	locs := store.Snapshot().Locations
	require.Len(t, locs, 1)
	assert.Equal(t, "kept", locs[0].Name)
}

func TestRunner_CancelledContext(t *testing.T) {
	_, sess := openSession(t)
	runner := NewRunner(sess, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := runner.Attempt(ctx, "test", func(context.Context, repository.Session) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.ErrorIs(t, err, context.Canceled)
}
