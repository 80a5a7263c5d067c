// Package api registers the engine's HTTP surface: envelope ingestion, the
// test/run endpoint, execution history, and the authoring field catalog.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/recruitflow/automation/internal/engine"
	"github.com/recruitflow/automation/internal/entity"
	"github.com/recruitflow/automation/internal/harness"
	"github.com/recruitflow/automation/internal/http/api/handlers"
	"github.com/recruitflow/automation/internal/rulestore"
	"github.com/recruitflow/automation/internal/security"
)

// Deps carries the collaborators handlers need.
type Deps struct {
	DB         *gorm.DB
	Engine     *engine.Engine
	Harness    *harness.Harness
	Rules      rulestore.Store
	Gateway    entity.Gateway
	AuthSecret string
}

// RegisterRoutes mounts all engine routes on r.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.GET("/healthz", handlers.NewHealthHandler(deps.DB, deps.Engine).Check)

	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(deps.AuthSecret))

	eventHandler := handlers.NewEventHandler(deps.Engine)
	v1.POST("/events", eventHandler.Ingest)

	testHandler := handlers.NewTestHandler(deps.Harness, deps.Gateway, deps.DB)
	v1.POST("/rules/:id/test", testHandler.Run)
	v1.GET("/models/:model/samples", testHandler.ListSamples)

	execHandler := handlers.NewExecutionHandler(deps.DB)
	v1.GET("/rules/:id/executions", execHandler.ListForRule)
	v1.GET("/executions/:id", execHandler.Get)

	ruleHandler := handlers.NewRuleHandler(deps.DB, deps.Rules)
	v1.GET("/rules", ruleHandler.List)
	v1.POST("/rules/invalidate-cache", ruleHandler.InvalidateCache)

	fieldHandler := handlers.NewFieldHandler(deps.Gateway)
	v1.GET("/models/:model/fields", fieldHandler.List)
}

// authMiddleware enforces a bearer JWT signed with the shared engine secret.
func authMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := security.ParseToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set("caller", claims.Caller)
		c.Next()
	}
}
