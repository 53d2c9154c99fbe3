package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"world-forge-api/internal/interfaces/http/dto"
	"world-forge-api/internal/workflow/chain"
	"world-forge-api/pkg/errors"
	"world-forge-api/pkg/logger"
)

// KeyVerifier 校验用户提供的 LLM API Key
type KeyVerifier interface {
	Verify(ctx context.Context, provider, apiKey string) (*chain.KeyVerification, error)
}

// LLMHandler LLM 相关处理器
type LLMHandler struct {
	verifier KeyVerifier
}

// NewLLMHandler 创建 LLM 处理器
func NewLLMHandler(verifier KeyVerifier) *LLMHandler {
	return &LLMHandler{verifier: verifier}
}

// VerifyKey 用一次问候调用校验 API Key
// @Summary 校验 API Key
// @Tags LLM
// @Accept json
// @Produce json
// @Param body body dto.VerifyKeyRequest true "API Key"
// @Success 200 {object} dto.Response[dto.VerifyKeyResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/llm/verify-key [post]
func (h *LLMHandler) VerifyKey(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.VerifyKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.verifier.Verify(ctx, req.Provider, req.APIKey)
	if err != nil {
		logger.Warn(ctx, "api key verification failed", "error", err.Error())
		dto.FromError(c, errors.Wrap(err, errors.CodeLLMProviderError, "failed to reach llm provider"))
		return
	}

	dto.Success(c, dto.ToVerifyKeyResponse(result))
}
