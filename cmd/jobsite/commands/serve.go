package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldi/jobsite/internal/logging"
	"github.com/ldi/jobsite/internal/printer"
	"github.com/ldi/jobsite/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.ephemeralSecret {
		printer.Warning("auth.secret is not set; using a random secret, tokens will not survive a restart\n")
	}
	if a.bus != nil {
		if err := a.bus.Ping(ctx); err != nil {
			printer.Warning("change events disabled until redis is reachable: %v\n", err)
		}
	}

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.NewServer(server.Deps{
		Checklist:      a.checklist,
		Sitework:       a.site,
		Auth:           a.auth,
		Blobs:          a.blobs,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()
	printer.Success("Serving on %s\n", addr)
	logging.Logger.Infof("Event ID: SERVER_STARTED, Description: listening on %s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Logger.Info("Event ID: SERVER_STOPPED, Description: shut down cleanly")
	return nil
}
