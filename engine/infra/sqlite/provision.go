package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/compozy/tdlimport/engine/infra/store"
	"github.com/compozy/tdlimport/pkg/logger"
)

const lockRetryDelay = 50 * time.Millisecond

// Provisioner creates one database file per destination inside Dir.
type Provisioner struct {
	Dir         string
	Reset       bool
	BusyTimeout time.Duration
}

var _ store.Opener = (*Provisioner)(nil)

// PathFor returns the database file used for destination.
func (p *Provisioner) PathFor(destination string) string {
	return filepath.Join(p.Dir, destination+".db")
}

// Open locks the destination file, optionally recreates it, applies the
// schema and returns the open store. The lock is held until Close.
func (p *Provisioner) Open(ctx context.Context, destination string) (store.Store, error) {
	log := logger.FromContext(ctx)
	if destination == "" {
		return nil, store.Fault("provision", store.ErrInvalidDestination)
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return nil, store.Fault("provision", fmt.Errorf("create directory: %w", err))
	}
	path := p.PathFor(destination)
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, store.Fault("provision", fmt.Errorf("lock destination: %w", err))
	}
	if !locked {
		return nil, store.Fault("provision", errors.New("destination is locked by another run"))
	}
	st, err := p.provision(ctx, path)
	if err != nil {
		if uerr := lock.Unlock(); uerr != nil {
			log.Warn("sqlite: release lock failed", "error", uerr)
		}
		return nil, err
	}
	st.release = lock.Unlock
	log.Info("Destination ready", "driver", "sqlite", "destination", destination, "path", path, "reset", p.Reset)
	return st, nil
}

func (p *Provisioner) provision(ctx context.Context, path string) (*Store, error) {
	if p.Reset {
		if err := removeDatabase(path); err != nil {
			return nil, store.Fault("reset destination", err)
		}
	}
	st, err := NewStore(ctx, &Config{Path: path, BusyTimeout: p.BusyTimeout})
	if err != nil {
		return nil, store.Fault("open destination", err)
	}
	if err := ApplyMigrations(ctx, st.DB()); err != nil {
		_ = st.db.Close()
		return nil, store.Fault("apply schema", err)
	}
	return st, nil
}

// removeDatabase deletes the database file and its journal side files.
func removeDatabase(path string) error {
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}
