package handler

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

const operatorContextKey = "operator"

// LoggerMiddleware logs one line per request.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware keeps a panic from taking the server down.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware allows the internal operations frontend through.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID, X-Operator-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// OperatorMiddleware stamps the requesting principal onto the context.
// Authentication itself happens upstream; every persisted record still
// needs an owner.
func OperatorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		operator := c.GetHeader("X-Operator-ID")
		if operator == "" {
			operator = "system"
		}
		c.Set(operatorContextKey, operator)
		c.Next()
	}
}

// Operator returns the principal stamped by OperatorMiddleware.
func Operator(c *gin.Context) string {
	if v, ok := c.Get(operatorContextKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "system"
}
