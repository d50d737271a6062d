package postgres

import (
	"context"

	"github.com/compozy/tdlimport/engine/infra/store"
	"github.com/compozy/tdlimport/pkg/logger"
)

// Provisioner maps each destination to a schema of one database.
type Provisioner struct {
	Config *Config
	Reset  bool
}

var _ store.Opener = (*Provisioner)(nil)

// Open provisions the destination schema and returns a store bound to it.
func (p *Provisioner) Open(ctx context.Context, destination string) (store.Store, error) {
	if destination == "" {
		return nil, store.Fault("provision", store.ErrInvalidDestination)
	}
	if err := ProvisionSchema(ctx, p.Config, destination, p.Reset); err != nil {
		return nil, store.Fault("provision", err)
	}
	st, err := NewStore(ctx, p.Config, destination)
	if err != nil {
		return nil, store.Fault("open destination", err)
	}
	logger.FromContext(ctx).Info("Destination ready", "driver", "postgres", "destination", destination, "reset", p.Reset)
	return st, nil
}
