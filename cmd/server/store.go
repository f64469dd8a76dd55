package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"schoolhub/internal/cache"
	"schoolhub/internal/config"
)

// newTokenBackend selects Redis when REDIS_ADDR is set and the in-process
// store otherwise. The in-process store is only correct for a single instance.
func newTokenBackend(cfg *config.Config, logg zerolog.Logger) (cache.Store, func()) {
	if cfg.Redis.Addr == "" {
		logg.Warn().Msg("REDIS_ADDR not set, token revocation is kept in process memory")
		return cache.NewMemory(), func() {}
	}

	client := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		logg.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, sign-in and token revocation will fail until it recovers")
	}

	return client, func() {
		if err := client.Close(); err != nil {
			logg.Error().Err(err).Msg("close redis")
		}
	}
}
