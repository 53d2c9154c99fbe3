// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"world-forge-api/internal/application/world"
	"world-forge-api/internal/domain/entity"
	"world-forge-api/internal/interfaces/http/dto"
	"world-forge-api/pkg/logger"
)

// SeedCreator 创建种子
type SeedCreator interface {
	CreateSeed(ctx context.Context) (*entity.Seed, error)
}

// WorldBuilder 构建世界并查询结果
type WorldBuilder interface {
	Build(ctx context.Context, req world.BuildRequest) (*world.BuildOutcome, error)
	Report(ctx context.Context, seedID string) (world.Report, error)
	World(ctx context.Context, seedID string) (*world.WorldView, error)
}

// WorldHandler 种子与世界构建处理器
type WorldHandler struct {
	seeds   SeedCreator
	builder WorldBuilder
}

// NewWorldHandler 创建世界处理器
func NewWorldHandler(seeds SeedCreator, builder WorldBuilder) *WorldHandler {
	return &WorldHandler{
		seeds:   seeds,
		builder: builder,
	}
}

// CreateSeed 创建种子
// @Summary 创建种子
// @Tags Seeds
// @Produce json
// @Success 201 {object} dto.Response[dto.SeedResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/seeds [post]
func (h *WorldHandler) CreateSeed(c *gin.Context) {
	ctx := c.Request.Context()

	seed, err := h.seeds.CreateSeed(ctx)
	if err != nil {
		logger.Error(ctx, "failed to create seed", err)
		dto.FromError(c, err)
		return
	}

	dto.Created(c, dto.ToSeedResponse(seed))
}

// BuildWorld 执行世界构建
// @Summary 构建世界
// @Description 依次生成主角、地点、NPC 及其技能、状态、关系、物品；部分阶段失败仍返回 200
// @Tags Seeds
// @Accept json
// @Produce json
// @Param sid path string true "种子 ID"
// @Param body body dto.BuildWorldRequest true "构建参数"
// @Success 200 {object} dto.Response[dto.BuildWorldResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/seeds/{sid}/build [post]
func (h *WorldHandler) BuildWorld(c *gin.Context) {
	ctx := c.Request.Context()
	seedID := dto.BindSeedID(c)

	var req dto.BuildWorldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	out, err := h.builder.Build(ctx, world.BuildRequest{
		SeedID:   seedID,
		SeedData: req.SeedData,
		Provider: req.Provider,
		APIKey:   req.APIKey,
		Model:    req.Model,
	})
	if err != nil {
		logger.Error(ctx, "world build failed", err, "seed_id", seedID)
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.ToBuildWorldResponse(out))
}

// GetReport 获取最近一次构建报告
// @Summary 获取构建报告
// @Tags Seeds
// @Produce json
// @Param sid path string true "种子 ID"
// @Success 200 {object} dto.Response[world.Report]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/seeds/{sid}/report [get]
func (h *WorldHandler) GetReport(c *gin.Context) {
	ctx := c.Request.Context()

	report, err := h.builder.Report(ctx, dto.BindSeedID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}

	dto.Success(c, report)
}

// GetWorld 获取已生成的世界
// @Summary 获取世界视图
// @Tags Seeds
// @Produce json
// @Param sid path string true "种子 ID"
// @Success 200 {object} dto.Response[dto.WorldViewResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/seeds/{sid}/world [get]
func (h *WorldHandler) GetWorld(c *gin.Context) {
	ctx := c.Request.Context()

	view, err := h.builder.World(ctx, dto.BindSeedID(c))
	if err != nil {
		dto.FromError(c, err)
		return
	}

	dto.Success(c, dto.ToWorldViewResponse(view))
}
