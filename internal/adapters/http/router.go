package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hevlin/MediaGroup/internal/adapters/registry"
	"github.com/hevlin/MediaGroup/internal/adapters/statestream"
	"github.com/hevlin/MediaGroup/internal/app"
	"github.com/hevlin/MediaGroup/internal/config"
)

// ClientTokenMiddleware tags every client with a stable token so the state
// stream can log who connected.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// SetupRouter wires the presentation surface of the composite device and,
// when a feed registry is given, the host-side endpoints that push member
// snapshots into it.
func SetupRouter(ctx context.Context, cfg *config.Config, group *app.GroupController, feed *registry.StaticRegistry) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	h := &GroupHandlers{Group: group}
	api := r.Group("/api")

	api.GET("/group", h.GetComposite)
	api.GET("/group/sources", h.GetSources)
	api.GET("/group/source", h.GetCurrentSource)
	api.POST("/group/source", h.SelectSource)
	api.POST("/group/volume", h.SetVolume)
	api.POST("/group/mute", h.SetMute)
	api.PUT("/group/members", h.UpdateMembers)
	api.PUT("/group/name", h.Rename)

	stream := statestream.NewController(group)
	api.GET("/ws/state", func(c *gin.Context) {
		stream.HandleState(ctx, c)
	})

	if feed != nil {
		fh := &FeedHandlers{Registry: feed}
		api.PUT("/registry/:id", fh.UpsertSnapshot)
		api.DELETE("/registry/:id", fh.RemoveMember)
	}

	return r
}
