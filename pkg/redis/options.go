package redis

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
)

// optionsFromConfig prefers URL over Address. Settings the URL leaves unset
// fall back to the discrete config fields.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}

	fallback(&opts.DB, cfg.DB)
	fallback(&opts.PoolSize, cfg.PoolSize)
	fallback(&opts.MinIdleConns, cfg.MinIdleConns)
	fallback(&opts.DialTimeout, cfg.DialTimeout)
	fallback(&opts.ReadTimeout, cfg.ReadTimeout)
	fallback(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func fallback[T comparable](dst *T, value T) {
	var zero T
	if *dst == zero {
		*dst = value
	}
}
