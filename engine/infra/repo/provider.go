package repo

import (
	"fmt"

	"github.com/compozy/tdlimport/engine/infra/postgres"
	"github.com/compozy/tdlimport/engine/infra/sqlite"
	"github.com/compozy/tdlimport/engine/infra/store"
	"github.com/compozy/tdlimport/pkg/config"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Provider exposes the destination opener for the configured driver. It
// returns the store interfaces rather than driver-specific types.
type Provider struct {
	cfg *config.DatabaseConfig
}

func NewProvider(cfg *config.DatabaseConfig) *Provider { return &Provider{cfg: cfg} }

// Driver returns the configured driver name, defaulting to sqlite.
func (p *Provider) Driver() string {
	if p.cfg == nil || p.cfg.Driver == "" {
		return DriverSQLite
	}
	return p.cfg.Driver
}

// NewOpener returns the destination opener for the configured driver.
func (p *Provider) NewOpener() (store.Opener, error) {
	cfg := p.cfg
	if cfg == nil {
		cfg = &config.Default().Database
	}
	switch p.Driver() {
	case DriverSQLite:
		return &sqlite.Provisioner{
			Dir:         cfg.Dir,
			Reset:       cfg.Reset,
			BusyTimeout: cfg.BusyTimeout,
		}, nil
	case DriverPostgres:
		return &postgres.Provisioner{Config: PostgresConfig(cfg), Reset: cfg.Reset}, nil
	default:
		return nil, fmt.Errorf("repo: unsupported database driver %q", cfg.Driver)
	}
}

// PostgresConfig maps database settings onto the postgres driver config.
func PostgresConfig(cfg *config.DatabaseConfig) *postgres.Config {
	return &postgres.Config{
		ConnString:     cfg.ConnString,
		Host:           cfg.Host,
		Port:           cfg.Port,
		User:           cfg.User,
		Password:       cfg.Password.Value(),
		DBName:         cfg.DBName,
		SSLMode:        cfg.SSLMode,
		ConnectTimeout: cfg.ConnectTimeout,
		ConnectRetries: cfg.ConnectRetries,
	}
}
