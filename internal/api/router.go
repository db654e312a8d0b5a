package api

import (
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the engine with health, metrics and all API routes.
// An empty origin list or one containing "*" allows every origin.
func NewRouter(h *Handler, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	cc := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}
	if len(allowOrigins) == 0 || slices.Contains(allowOrigins, "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = allowOrigins
	}
	r.Use(cors.New(cc))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterRoutes(r, h)
	return r
}
