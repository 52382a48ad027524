package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Relay/internal/adapters/relay"
	"github.com/dkeye/Relay/internal/config"
)

// adminAuth guards the credential API with a static bearer token.
// Left empty, the surface stays open (expected to sit behind an
// external access layer, as the original deployment did).
func adminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *relay.Controller, admin *AdminHandler) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/connect/:roomID", func(c *gin.Context) {
		ctl.HandleConnect(ctx, c)
	})

	api := r.Group("/api")
	if cfg.AdminToken != "" {
		api.Use(adminAuth(cfg.AdminToken))
	}
	api.POST("/users", admin.CreateCredential)
	api.GET("/users", admin.ListCredentials)
	api.DELETE("/users/:id", admin.DeleteCredential)
	api.GET("/rooms", admin.ListRooms)

	log.Info().Str("module", "adapters.http").Msg("router setup")

	return r
}
