package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ghunter254/lazy-appwrite/pkg/core"
)

// Open creates a backend for cfg and connects it.
func Open(ctx context.Context, cfg core.BackendConfig, logger *slog.Logger) (core.Backend, error) {
	b, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := b.Connect(ctx, cfg); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to connect %s backend: %w", cfg.Type, err)
	}
	return b, nil
}
