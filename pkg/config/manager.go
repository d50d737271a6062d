package config

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Manager holds the active configuration and the sources it came from.
type Manager struct {
	Service  Service
	current  atomic.Value // stores *Config
	sources  []Source
	reloadMu sync.Mutex
}

// NewManager creates a new configuration manager.
func NewManager(service Service) *Manager {
	if service == nil {
		service = NewService()
	}
	return &Manager{Service: service}
}

// Load loads configuration from sources and makes it current.
func (m *Manager) Load(ctx context.Context, sources ...Source) (*Config, error) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()
	m.sources = append([]Source(nil), sources...)
	config, err := m.Service.Load(ctx, sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	m.current.Store(config)
	return config, nil
}

// Get returns the current configuration atomically.
func (m *Manager) Get() *Config {
	config, ok := m.current.Load().(*Config)
	if !ok {
		return nil
	}
	return config
}

// Reload re-reads all sources given to the last Load.
func (m *Manager) Reload(ctx context.Context) error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()
	config, err := m.Service.Load(ctx, m.sources...)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	m.current.Store(config)
	return nil
}
