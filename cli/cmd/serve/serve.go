// Package serve implements the serve command hosting the upload form.
package serve

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/compozy/tdlimport/engine/infra/monitoring"
	"github.com/compozy/tdlimport/engine/infra/server"
	"github.com/compozy/tdlimport/engine/ingest"
	"github.com/compozy/tdlimport/pkg/config"
	"github.com/compozy/tdlimport/pkg/logger"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload form and upload endpoint",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("host", "", "Host to listen on")
	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().Bool("metrics", false, "Expose Prometheus metrics")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := config.FromContext(ctx)
	log := logger.FromContext(ctx)
	gin.SetMode(gin.ReleaseMode)

	mon := monitoring.NewMonitoringServiceWithFallback(ctx, &monitoring.Config{
		Enabled: cfg.Monitoring.Enabled,
		Path:    cfg.Monitoring.Path,
	})
	mon.SetAsGlobal()
	svc, err := ingest.NewServiceFromConfig(cfg, mon.Ingest())
	if err != nil {
		return fmt.Errorf("failed to build ingest service: %w", err)
	}
	srv, err := server.NewServer(ctx, cfg, svc, mon)
	if err != nil {
		return err
	}
	log.Info("Serving upload form", "driver", cfg.Database.Driver, "precedence", cfg.Ingest.Precedence)
	return srv.Run(ctx)
}
