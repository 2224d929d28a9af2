package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/Guilhem-Bonnet/pagebroker/internal/adapters/httpapi"
	"github.com/Guilhem-Bonnet/pagebroker/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/pagebroker/internal/adapters/pagegql"
	"github.com/Guilhem-Bonnet/pagebroker/internal/adapters/snapshot"
	"github.com/Guilhem-Bonnet/pagebroker/internal/adapters/stats"
	"github.com/Guilhem-Bonnet/pagebroker/internal/app"
	"github.com/Guilhem-Bonnet/pagebroker/internal/buildinfo"
	"github.com/Guilhem-Bonnet/pagebroker/internal/config"
	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
)

func main() {
	configPath := pflag.StringP("config", "c", os.Getenv("PAGEBROKER_CONFIG"), "Fichier YAML optionnel")
	dataDir := pflag.String("data", "", "Dossier des snapshots (accounts.json, serieses.json, config.json)")
	addr := pflag.String("addr", "", "Adresse d'écoute, prioritaire sur config.json (ex: 127.0.0.1:8080)")
	pflag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "pagebroker-server").Logger()
	log.Logger = logger

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	logger.Info().Interface("build", buildinfo.Current()).Str("data", cfg.DataDir).Msg("starting")

	snapshots := snapshot.New(cfg.DataDir, logger.With().Str("component", "snapshot").Logger())
	tables, settings, err := snapshots.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load snapshot")
	}

	gql := pagegql.New(pagegql.Options{
		Endpoint: cfg.GraphQLEndpoint,
		SiteURL:  cfg.SiteURL,
		RPS:      cfg.OutboundRPS,
	})
	anon := gql.Anonymous()

	bus := memorybus.New()
	defer bus.Close()

	var statsStore interface {
		ports.StatsStore
		ports.StatsReader
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Str("redis", cfg.RedisAddr).Msg("redis stats ping error")
		}
		statsStore = stats.NewRedisStore(rdb, stats.WithPrefix(cfg.RedisKey))
	} else {
		statsStore = stats.NewMemoryStore()
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := app.NewStore(tables, gql.NewSession)
	solo := app.NewSoloExecutor()
	settingsSvc := app.NewSettingsService(settings)
	settings, _ = settingsSvc.Get(shutdownCtx)

	listenAddr := resolveListenAddr(cfg.Addr, settings)

	// Plafond global des requêtes de contenu, ajusté à chaud par PUT /api/v1/config.
	gate := app.NewRequestGate(settings.MaxConcurrentRequests)
	settingsSvc.OnUpdate(func(updated domain.Settings) {
		gate.SetLimit(updated.MaxConcurrentRequests)
	})

	finder := app.NewFinder(shutdownCtx, logger.With().Str("component", "finder").Logger(), store, gql, solo, bus, app.FinderOptions{
		CooldownInterval: cfg.FinderCooldownInterval,
		CooldownTicks:    cfg.FinderCooldownTicks,
	})
	contentSvc := app.NewContentService(logger.With().Str("component", "content").Logger(), store, gql, anon, finder, solo, gate, statsStore, bus)
	catalogSvc := app.NewCatalogService(gql, anon)

	maintenance := app.NewMaintenance(logger.With().Str("component", "maintenance").Logger(), store, gql, solo, snapshots, settingsSvc, app.MaintenanceOptions{
		TokenRefreshInterval: cfg.TokenRefreshInterval,
		RewardInterval:       cfg.RewardInterval,
		GiftInterval:         cfg.GiftInterval,
		SnapshotInterval:     cfg.SnapshotInterval,
	})
	maintenance.Start(shutdownCtx)

	srv := httpapi.NewServer(logger, httpapi.Deps{
		Content:   contentSvc,
		Catalog:   catalogSvc,
		Settings:  settingsSvc,
		Stats:     statsStore,
		Bus:       bus,
		Resources: httpapi.NewResourceProxy(cfg.ResourceHost, anon),
	})
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", listenAddr).Int("accounts", len(tables.Accounts)).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("stopping")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)

	if err := maintenance.SaveSnapshot(ctx); err != nil {
		logger.Error().Err(err).Msg("final snapshot failed")
	}
	logger.Info().Msg("bye")
}

// resolveListenAddr: --addr ne vaut que pour ce démarrage, config.json garde son bind_addr.
func resolveListenAddr(override string, settings domain.Settings) string {
	if o := strings.TrimSpace(override); o != "" {
		return o
	}
	return settings.BindAddr
}
