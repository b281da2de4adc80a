package cmd

import (
	"context"

	"trading-platform-client/config"
	"trading-platform-client/internal/api"
	"trading-platform-client/pkg/cache"
	"trading-platform-client/pkg/logger"
)

type AppDependency struct {
	cfg   *config.Config
	log   *logger.Logger
	cache cache.Cache
	api   api.Client
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	inmemoryCache := cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval)

	return &AppDependency{
		cfg:   cfg,
		log:   log,
		cache: inmemoryCache,
		api:   api.NewClient(cfg, log, inmemoryCache),
	}, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	return d.log.Sync()
}
