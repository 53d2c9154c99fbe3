package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	llmctx "world-forge-api/internal/domain/service"
)

type RedisTestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	client    *Client
	ctx       context.Context
}

func (s *RedisTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.miniRedis = mr

	s.client = NewClientFromRedis(redis.NewClient(&redis.Options{
		Addr: s.miniRedis.Addr(),
	}))
	s.ctx = context.Background()
}

func (s *RedisTestSuite) TearDownTest() {
	_ = s.client.Close()
	s.miniRedis.Close()
}

func (s *RedisTestSuite) TestHealthCheck() {
	s.NoError(s.client.HealthCheck(s.ctx))
}

func (s *RedisTestSuite) TestCache_SetGetDelete() {
	cache := NewCache(s.client)
	key := ReportKey("seed-1")

	_, err := cache.Get(s.ctx, key)
	s.True(IsNil(err))

	s.Require().NoError(cache.Set(s.ctx, key, map[string]string{"status": "success"}, time.Hour))
	got, err := cache.Get(s.ctx, key)
	s.Require().NoError(err)
	s.JSONEq(`{"status":"success"}`, string(got))
	s.True(s.miniRedis.TTL(key) > 0)

	s.Require().NoError(cache.Set(s.ctx, key, []byte(`{"raw":true}`), time.Hour))
	got, err = cache.Get(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(`{"raw":true}`, string(got))

	s.Require().NoError(cache.Delete(s.ctx, key))
	s.False(s.miniRedis.Exists(key))
}

func (s *RedisTestSuite) TestCache_GetOrLoadSafe() {
	cache := NewCache(s.client)
	key := ViewKey("seed-2")
	var calls int32

	loader := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]int{"characters": 3}, nil
	}

	first, err := cache.GetOrLoadSafe(s.ctx, key, time.Minute, loader)
	s.Require().NoError(err)
	second, err := cache.GetOrLoadSafe(s.ctx, key, time.Minute, loader)
	s.Require().NoError(err)

	s.JSONEq(`{"characters":3}`, string(first))
	s.Equal(first, second)
	s.Equal(int32(1), atomic.LoadInt32(&calls))

	_, err = cache.GetOrLoadSafe(s.ctx, ViewKey("seed-3"), time.Minute, func() (any, error) {
		return nil, errors.New("db down")
	})
	s.Error(err)
	s.False(s.miniRedis.Exists(ViewKey("seed-3")))
}

func (s *RedisTestSuite) TestRateLimiter() {
	limiter := NewRateLimiter(s.client)
	key := BuildRateLimitKey("10.0.0.1", "build")

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(s.ctx, key, 2, time.Minute)
		s.Require().NoError(err)
		s.True(ok)
	}
	ok, err := limiter.Allow(s.ctx, key, 2, time.Minute)
	s.Require().NoError(err)
	s.False(ok)

	remaining, err := limiter.Remaining(s.ctx, key, 2, time.Minute)
	s.Require().NoError(err)
	s.Equal(0, remaining)

	s.Require().NoError(limiter.Reset(s.ctx, key))
	ok, err = limiter.Allow(s.ctx, key, 2, time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *RedisTestSuite) TestUsageRecorder() {
	rec := NewUsageRecorder(s.client, time.Hour)

	empty, err := rec.Usage(s.ctx, "seed-4")
	s.Require().NoError(err)
	s.Equal(int64(0), empty.Calls)

	for i := 0; i < 3; i++ {
		s.Require().NoError(rec.Record(s.ctx, llmctx.LLMUsageInput{
			SeedID:           "seed-4",
			PromptTokens:     100,
			CompletionTokens: 20,
		}))
	}

	usage, err := rec.Usage(s.ctx, "seed-4")
	s.Require().NoError(err)
	s.Equal(int64(3), usage.Calls)
	s.Equal(int64(300), usage.PromptTokens)
	s.Equal(int64(60), usage.CompletionTokens)
}

func TestRedisTestSuite(t *testing.T) {
	suite.Run(t, new(RedisTestSuite))
}
