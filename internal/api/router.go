package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inkdrift/inkdrift/internal/config"
	"github.com/inkdrift/inkdrift/internal/health"
	"github.com/inkdrift/inkdrift/internal/jobs"
	"github.com/inkdrift/inkdrift/internal/provider"
	"github.com/inkdrift/inkdrift/internal/usage"
)

// NewRouter assembles the HTTP surface: the open health probe plus the
// token-guarded /api group with job management and the status endpoint.
func NewRouter(cfg *config.Config, store *jobs.Store, gateway *provider.Gateway, recorder *usage.Recorder) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", gin.WrapF(health.Handler))

	apiGroup := router.Group("/api")
	apiGroup.Use(RequireToken(cfg.APIToken))

	jobs.RegisterRoutes(apiGroup, store, cfg)
	apiGroup.GET("/status", statusHandler(cfg, gateway, recorder))

	return router
}

// RequireToken guards the API with a static bearer token. An empty
// configured token leaves the API open, for local development only.
func RequireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// statusHandler reports available models and 30-day spend.
func statusHandler(cfg *config.Config, gateway *provider.Gateway, recorder *usage.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		totals, err := recorder.TotalsSince(ctx, time.Now().AddDate(0, 0, -30))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate usage"})
			return
		}

		providerName := cfg.ProviderMode
		if providerName == config.ProviderAuto {
			providerName = provider.BackendOpenAI
		}
		models, err := gateway.ListModels(ctx, providerName)
		if err != nil {
			// Spend is still useful when every provider is down.
			models = nil
		}

		c.JSON(http.StatusOK, gin.H{
			"provider_mode": cfg.ProviderMode,
			"preview_mode":  cfg.PreviewMode,
			"models":        models,
			"usage_30d":     totals,
		})
	}
}
