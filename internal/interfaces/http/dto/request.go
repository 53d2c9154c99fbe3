package dto

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// BuildWorldRequest 世界构建请求；api_key 为空时使用服务端配置的密钥
type BuildWorldRequest struct {
	SeedData string `json:"seed_data" binding:"required"`
	APIKey   string `json:"api_key,omitempty"`
	Provider string `json:"provider,omitempty" binding:"omitempty,max=32"`
	Model    string `json:"model,omitempty" binding:"omitempty,max=64"`
}

// VerifyKeyRequest API Key 校验请求
type VerifyKeyRequest struct {
	APIKey   string `json:"api_key" binding:"required"`
	Provider string `json:"provider,omitempty" binding:"omitempty,max=32"`
}

// BindSeedID 从 URI 绑定种子 ID
func BindSeedID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("sid"))
}
