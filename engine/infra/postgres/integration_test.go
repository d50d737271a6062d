package postgres

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/compozy/tdlimport/engine/infra/store"
)

// dockerAvailable checks whether the Docker daemon is reachable; testcontainers
// panics instead of failing when it is not.
func dockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

func newContainerConfig(t *testing.T) *Config {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	if !dockerAvailable() {
		t.Skip("Docker not available, skipping PostgreSQL integration tests")
	}
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("tdl"),
		tcpostgres.WithUsername("tdl"),
		tcpostgres.WithPassword("tdl"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return &Config{ConnString: connStr, ConnectRetries: 3}
}

func TestProvisioner_Integration(t *testing.T) {
	cfg := newContainerConfig(t)
	ctx := t.Context()

	load := func(t *testing.T, reset bool) store.Counts {
		t.Helper()
		p := &Provisioner{Config: cfg, Reset: reset}
		st, err := p.Open(ctx, "home_tdl")
		require.NoError(t, err)
		defer st.Close(ctx)
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		taskID, err := tx.InsertTask(ctx, &store.TaskRow{Title: "Buy milk"})
		require.NoError(t, err)
		catID, created, err := tx.InsertCategoryIfAbsent(ctx, "Errands")
		require.NoError(t, err)
		if !created {
			catID, err = tx.CategoryID(ctx, "Errands")
			require.NoError(t, err)
		}
		_, err = tx.LinkTaskCategory(ctx, taskID, catID)
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))
		counts, err := st.Counts(ctx)
		require.NoError(t, err)
		return counts
	}

	t.Run("Should provision a schema and load rows", func(t *testing.T) {
		assert.Equal(t, store.Counts{Tasks: 1, Categories: 1, TaskCategories: 1}, load(t, true))
	})

	t.Run("Should append without reset and share the category", func(t *testing.T) {
		assert.Equal(t, store.Counts{Tasks: 2, Categories: 1, TaskCategories: 2}, load(t, false))
	})

	t.Run("Should start over on reset", func(t *testing.T) {
		assert.Equal(t, store.Counts{Tasks: 1, Categories: 1, TaskCategories: 1}, load(t, true))
	})

	t.Run("Should discard the transaction on rollback", func(t *testing.T) {
		p := &Provisioner{Config: cfg, Reset: true}
		st, err := p.Open(ctx, "rollback_tdl")
		require.NoError(t, err)
		defer st.Close(ctx)
		tx, err := st.Begin(ctx)
		require.NoError(t, err)
		_, err = tx.InsertTask(ctx, &store.TaskRow{Title: "gone"})
		require.NoError(t, err)
		require.NoError(t, tx.Rollback(ctx))
		counts, err := st.Counts(ctx)
		require.NoError(t, err)
		assert.Zero(t, counts.Tasks)
	})
}
