package app

import (
	"context"
	"net/http"
	"time"

	"songmail/internal/middleware"
	"songmail/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

func (c *Container) Router() *gin.Engine {
	if c.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.CORS(c.Config.CORSAllowedOrigins),
	)
	r.NoRoute(middleware.NotFound())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", c.health)

		c.AuthHandler.RegisterPublicRoutes(v1)
		c.CatalogHandler.RegisterRoutes(v1)
		c.ShareHandler.RegisterPublicRoutes(v1)

		optional := v1.Group("")
		optional.Use(middleware.OptionalJWTAuth(c.JWT))
		c.ShareHandler.RegisterSendRoutes(optional)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(c.JWT))
		{
			c.AuthHandler.RegisterProtectedRoutes(protected)
			c.FriendHandler.RegisterProtectedRoutes(protected)
		}
	}

	return r
}

func (c *Container) health(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := c.Health(checkCtx); err != nil {
		_ = ctx.Error(err)
		response.Error(ctx, http.StatusServiceUnavailable, "UNHEALTHY", "Dependency check failed")
		return
	}
	response.Success(ctx, http.StatusOK, gin.H{"status": "ok"})
}
