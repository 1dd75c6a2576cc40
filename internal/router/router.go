package router

import (
	"github.com/teller-next/internal/config"
	adminhandlers "github.com/teller-next/internal/http/handlers/admin"
	"github.com/teller-next/internal/http/response"
	"github.com/teller-next/internal/logger"
	"github.com/teller-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		admin := apiV1.Group("/admin")
		{
			admin.GET("/users", adminHandler.AdminListUsers)
			admin.GET("/users/:id/upline-chain", adminHandler.AdminGetUserUplineChain)
			admin.GET("/users/:id/income-summary", adminHandler.AdminGetUserIncomeSummary)

			admin.GET("/transactions", adminHandler.AdminListTransactions)
			admin.GET("/transactions/:id", adminHandler.AdminGetTransaction)
			admin.PUT("/transactions/:id/status", adminHandler.AdminUpdateTransactionStatus)
			admin.POST("/transactions/status/batch", adminHandler.AdminBatchUpdateTransactionStatus)
			admin.GET("/transactions/batches/:batch_id", adminHandler.AdminGetBatchProgress)

			admin.GET("/passive-incomes", adminHandler.AdminListPassiveIncomes)
		}
	}

	return r
}
