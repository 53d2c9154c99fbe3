package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"world-forge-api/internal/application/world"
	"world-forge-api/internal/config"
	"world-forge-api/internal/domain/entity"
	"world-forge-api/internal/infrastructure/persistence/redis"
	"world-forge-api/internal/interfaces/http/handler"
	"world-forge-api/internal/workflow/chain"
	apperrors "world-forge-api/pkg/errors"
)

type fakeSeeds struct {
	err error
}

func (f *fakeSeeds) CreateSeed(context.Context) (*entity.Seed, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &entity.Seed{ID: "seed-1"}, nil
}

type fakeBuilder struct {
	last world.BuildRequest
}

func (f *fakeBuilder) Build(_ context.Context, req world.BuildRequest) (*world.BuildOutcome, error) {
	f.last = req
	if req.SeedID == "missing" {
		return nil, apperrors.ErrSeedNotFound
	}
	return &world.BuildOutcome{
		SeedID: req.SeedID,
		Report: world.Report{
			world.StageMainCharacter: {Status: world.StatusSuccess, Message: "Main character created successfully", Details: map[string]any{"character_id": "c1"}},
			world.StageLocations:     {Status: world.StatusFailure, Message: "Failed to create locations: boom"},
		},
	}, nil
}

func (f *fakeBuilder) Report(_ context.Context, seedID string) (world.Report, error) {
	if seedID != "seed-1" {
		return nil, apperrors.ErrReportNotFound
	}
	return world.Report{world.StageLocations: {Status: world.StatusSuccess, Message: "ok"}}, nil
}

func (f *fakeBuilder) World(_ context.Context, seedID string) (*world.WorldView, error) {
	male := true
	return &world.WorldView{
		Seed:       &entity.Seed{ID: seedID},
		Characters: []*entity.Character{{ID: "c1", Name: "Aria", MainCharacter: true, Gender: &male}},
	}, nil
}

type fakeVerifier struct {
	err error
}

func (f *fakeVerifier) Verify(_ context.Context, _ string, apiKey string) (*chain.KeyVerification, error) {
	if f.err != nil {
		return nil, f.err
	}
	if apiKey == "sk-good" {
		return &chain.KeyVerification{Valid: true, Message: "API key is valid"}, nil
	}
	return &chain.KeyVerification{Valid: false, Message: "Invalid API key"}, nil
}

type okChecker struct{}

func (okChecker) HealthCheck(context.Context) error { return nil }

type testServer struct {
	engine   *gin.Engine
	builder  *fakeBuilder
	verifier *fakeVerifier
}

func newTestServer(t *testing.T, buildsPerMinute int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClientFromRedis(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{}
	cfg.App.Name = "world-forge-api"
	cfg.Security.RateLimit.Enabled = true
	cfg.Security.RateLimit.BuildsPerMinute = buildsPerMinute
	cfg.Observability.Metrics.Enabled = true
	cfg.Observability.Metrics.Path = "/metrics"

	builder := &fakeBuilder{}
	verifier := &fakeVerifier{}
	r := New(cfg, Handlers{
		Health: handler.NewHealthHandler(okChecker{}, nil, "test"),
		World:  handler.NewWorldHandler(&fakeSeeds{}, builder),
		LLM:    handler.NewLLMHandler(verifier),
	}, redis.NewRateLimiter(client))

	return &testServer{engine: r.Engine(), builder: builder, verifier: verifier}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateSeed(t *testing.T) {
	s := newTestServer(t, 5)

	w := s.do(http.MethodPost, "/v1/seeds", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "seed-1", data["seed_id"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestBuildWorld_PartialFailureIsOK(t *testing.T) {
	s := newTestServer(t, 5)

	w := s.do(http.MethodPost, "/v1/seeds/seed-1/build", map[string]string{
		"seed_data": "frozen north",
		"api_key":   "sk-user",
		"model":     "gpt-4o",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "seed-1", s.builder.last.SeedID)
	assert.Equal(t, "frozen north", s.builder.last.SeedData)
	assert.Equal(t, "sk-user", s.builder.last.APIKey)

	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, false, data["succeeded"])
	report := data["report"].(map[string]any)
	assert.Equal(t, "failure", report[world.StageLocations].(map[string]any)["status"])
	mainChar := report[world.StageMainCharacter].(map[string]any)
	assert.Equal(t, "c1", mainChar["character_id"])
	assert.NotContains(t, mainChar, "details")
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
}

func TestBuildWorld_Validation(t *testing.T) {
	s := newTestServer(t, 5)

	w := s.do(http.MethodPost, "/v1/seeds/seed-1/build", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/seeds/missing/build", map[string]string{"seed_data": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	errBody := decode(t, w)["error"].(map[string]any)
	assert.Equal(t, string(apperrors.CodeSeedNotFound), errBody["error_code"])
}

func TestBuildWorld_RateLimited(t *testing.T) {
	s := newTestServer(t, 2)
	body := map[string]string{"seed_data": "x"}

	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/v1/seeds/seed-1/build", body).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/v1/seeds/seed-1/build", body).Code)
	w := s.do(http.MethodPost, "/v1/seeds/seed-1/build", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// 其他端点不受构建限流影响
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/seeds/seed-1/report", nil).Code)
}

func TestGetReportAndWorld(t *testing.T) {
	s := newTestServer(t, 5)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/seeds/seed-1/report", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/v1/seeds/other/report", nil).Code)

	w := s.do(http.MethodGet, "/v1/seeds/seed-1/world", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	chars := data["characters"].([]any)
	require.Len(t, chars, 1)
	assert.Equal(t, "Male", chars[0].(map[string]any)["gender"])
}

func TestVerifyKey(t *testing.T) {
	s := newTestServer(t, 5)

	w := s.do(http.MethodPost, "/v1/llm/verify-key", map[string]string{"api_key": "sk-good"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["data"].(map[string]any)["valid"])

	w = s.do(http.MethodPost, "/v1/llm/verify-key", map[string]string{"api_key": "sk-bad"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["data"].(map[string]any)["valid"])

	s.verifier.err = errors.New("connection refused")
	w = s.do(http.MethodPost, "/v1/llm/verify-key", map[string]string{"api_key": "sk-good"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, 5)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/live", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/metrics", nil).Code)

	w := s.do(http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	checks := decode(t, w)["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["postgres"].(map[string]any)["status"])
	assert.Equal(t, "missing", checks["redis"].(map[string]any)["status"])
}
