package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/swarmstate/internal/health"
	"github.com/dyluth/swarmstate/pkg/swarmstore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /healthz and /metrics until interrupted",
		Long: `Serve a health endpoint that pings the configured backend and a
Prometheus /metrics endpoint for the store's operation counters.

The listen address defaults to server.addr from swarmstate.yml.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config)")

	cmd.RunE = opts.run(func(cmd *cobra.Command, args []string) error {
		p := opts.printer(cmd)
		listenAddr := orDefault(addr, opts.cfg.Server.Addr)

		pinger, _ := opts.backend.(swarmstore.Pinger)
		server := health.NewServer(listenAddr, pinger, opts.registry, opts.logger)
		if err := server.Start(); err != nil {
			return p.ErrorWithContext("failed to start server", err.Error(),
				map[string]string{"Address": listenAddr},
				[]string{"Choose another address with --addr"})
		}
		p.Success("Serving health and metrics on %s\n", server.Addr())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		opts.logger.Info("Shutting down", zap.String("addr", server.Addr()))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return cmd
}
