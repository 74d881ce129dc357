package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/hevlin/MediaGroup/internal/adapters/http"
	"github.com/hevlin/MediaGroup/internal/adapters/registry"
	"github.com/hevlin/MediaGroup/internal/app"
	"github.com/hevlin/MediaGroup/internal/config"
	"github.com/hevlin/MediaGroup/internal/domain"
	"github.com/hevlin/MediaGroup/internal/redisx"
	"github.com/hevlin/MediaGroup/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	naming, err := app.ParseNamingPolicy(cfg.NamingPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("bad naming policy")
	}
	mute, err := app.ParseMutePolicy(cfg.MutePolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("bad mute policy")
	}

	var cfgStore store.ConfigStore
	switch cfg.Store {
	case "redis":
		rdb, err := redisx.NewUniversalClient(ctx, redisx.Options{
			Addrs:    cfg.RedisAddrs,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connect failed")
		}
		defer rdb.Close()
		cfgStore = store.NewRedisStore(rdb)
	default:
		cfgStore = store.NewMemoryStore()
	}

	members := make([]domain.MemberID, 0, len(cfg.GroupMembers))
	for _, id := range cfg.GroupMembers {
		members = append(members, domain.MemberID(id))
	}
	groupCfg, err := domain.NewGroupConfig(cfg.GroupName, members)
	if err != nil {
		log.Fatal().Err(err).Msg("bad group config")
	}

	// The standalone server feeds member state through the HTTP API; a
	// host embedding the controller would inject its own registry here.
	feed := registry.NewStaticRegistry()
	for _, id := range members {
		feed.Upsert(domain.UnavailableSnapshot(id))
	}

	group := app.NewGroupController(groupCfg, feed, cfgStore, app.Options{
		Naming:       naming,
		Mute:         mute,
		FetchTimeout: cfg.FetchTimeout,
		RefreshEvery: cfg.RefreshInterval,
	})
	if err := group.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("group init failed")
	}
	go group.Run(ctx)

	r := router.SetupRouter(ctx, cfg, group, feed)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("group", string(groupCfg.ID)).Msg("MediaGroup server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
