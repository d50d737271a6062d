package config

import (
	"context"
	"sync"

	"github.com/compozy/tdlimport/pkg/logger"
)

// ContextKey is an alias used for storing values in context
type ContextKey string

const (
	// ManagerCtxKey is the context key used to store the *Manager instance
	ManagerCtxKey ContextKey = "config_manager"
)

// ContextWithManager stores the configuration manager in the context
func ContextWithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, ManagerCtxKey, m)
}

var (
	defaultManager     *Manager
	defaultManagerOnce sync.Once
)

// ManagerFromContext retrieves the configuration manager from the context,
// falling back to a lazily loaded manager built from defaults and
// environment variables.
func ManagerFromContext(ctx context.Context) *Manager {
	if ctx != nil {
		if m, ok := ctx.Value(ManagerCtxKey).(*Manager); ok && m != nil {
			return m
		}
	}
	return getDefaultManager(ctx)
}

// FromContext returns the active configuration for the provided context.
func FromContext(ctx context.Context) *Config {
	if cfg := ManagerFromContext(ctx).Get(); cfg != nil {
		return cfg
	}
	return Default()
}

func getDefaultManager(ctx context.Context) *Manager {
	defaultManagerOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		m := NewManager(NewService())
		if _, err := m.Load(ctx, NewEnvProvider()); err != nil {
			logger.FromContext(ctx).Warn("failed to load default configuration, using fallback defaults", "error", err)
		}
		defaultManager = m
	})
	return defaultManager
}
