package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/docsearch/api/handlers"
	"github.com/meghashyamc/docsearch/config"
	"github.com/meghashyamc/docsearch/db"
	"github.com/meghashyamc/docsearch/logger"
	"github.com/meghashyamc/docsearch/validation"
	"golang.org/x/time/rate"
)

func setupRoutes(router *gin.Engine, logger logger.Logger, cfg *config.Config, deps *Dependencies, validator *validation.Validator) {
	router.GET("/health", health())

	limiter := rate.NewLimiter(rate.Limit(cfg.GetRateLimitRPS()), cfg.GetRateLimitBurst())
	searchRoutes := router.Group("", rateLimitMiddleware(logger, limiter))
	handlers.SetupSearch(searchRoutes, logger, deps.Search, validator, cfg.GetDefaultResultsPerPage())

	handlers.SetupIndex(router, logger, deps.Index)

	// documents pushed by the approval workflow are only accepted by the embedded store
	if store, ok := deps.Store.(db.WritableStore); ok {
		handlers.SetupDocuments(router, logger, store, deps.Index, validator)
	}
}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

func newRouter() *gin.Engine {
	router := gin.Default()
	router.UseRawPath = true
	router.Use(_CORSMiddleware())
	router.Use(gin.Recovery())
	router.Use(callerIdentityMiddleware())

	return router
}
