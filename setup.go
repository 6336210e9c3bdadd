package stockpile

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/BaSui01/stockpile/backend/memory"
	"github.com/BaSui01/stockpile/backend/redis"
	"github.com/BaSui01/stockpile/config"
	"github.com/BaSui01/stockpile/connection"
)

// BackendWrapper 包装后端，例如指标或追踪装饰器
type BackendWrapper func(connection.Backend) connection.Backend

// BackendFromConfig 按 cfg.Backend 创建后端
func BackendFromConfig(cfg *config.Config, getenv func(string) string, logger *zap.Logger) (connection.Backend, error) {
	switch cfg.Backend {
	case config.BackendRedis, "":
		return redis.NewBackend(cfg.RedisBackend(getenv), logger), nil
	case config.BackendMemory:
		return memory.NewBackend(nil, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", connection.ErrConfiguration, cfg.Backend)
	}
}

// FromConfig 按配置创建 Stockpile，wrap 按顺序由内向外包装后端
func FromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger, wrap ...BackendWrapper) (*Stockpile, error) {
	backend, err := BackendFromConfig(cfg, os.Getenv, logger)
	if err != nil {
		return nil, err
	}
	for _, w := range wrap {
		backend = w(backend)
	}

	return New(ctx, Options{
		Backend: backend,
		Width:   cfg.Width(),
		Clients: cfg.Clients,
		Logger:  logger,
	})
}
