package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由，buildLimit 只作用于世界构建
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers, buildLimit gin.HandlerFunc) {
	// 种子与世界
	seeds := v1.Group("/seeds")
	{
		seeds.POST("", h.World.CreateSeed)
		seeds.POST("/:sid/build", buildLimit, h.World.BuildWorld)
		seeds.GET("/:sid/report", h.World.GetReport)
		seeds.GET("/:sid/world", h.World.GetWorld)
	}

	// LLM
	llm := v1.Group("/llm")
	{
		llm.POST("/verify-key", h.LLM.VerifyKey)
	}
}
