package handler

import (
	"chequegw/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter wires middleware and routes.
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())
	r.Use(OperatorMiddleware())

	h := NewHandler(db, rdb, cfg)

	api := r.Group("/api/v1")
	{
		unpaid := api.Group("/unpaid")
		{
			unpaid.POST("/create", h.CreateUnpaid)
			unpaid.GET("/detail", h.GetUnpaid)
			unpaid.GET("/list", h.ListUnpaid)
		}

		charge := api.Group("/charge")
		{
			charge.POST("/collect", h.CollectCharge)
			charge.GET("/list", h.ListCharges)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
