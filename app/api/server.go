package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pierrevano/whatson-api/app/cfg"
)

func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler) {
	r.GET("/", handler.Search)
	r.GET("/movie/:id", handler.GetMovieByID)
	r.GET("/tvshow/:id", handler.GetTVShowByID)

	r.GET("/health", handler.GetHealth)

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{"version": cfg.Get().Version})
	})

	// Return 204 to avoid noisy 404s from browsers.
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
