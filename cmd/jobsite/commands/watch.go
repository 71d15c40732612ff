package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ldi/jobsite/internal/events"
	"github.com/ldi/jobsite/internal/printer"
	"github.com/ldi/jobsite/pkg/models"
)

var watchProject string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream change events from redis",
	Long: `Print every committed write published on this instance's change feed
until interrupted. Needs events.redis_addr (or JOBSITE_REDIS_ADDR).`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchProject, "project", "", "Only show changes to this project")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.bus == nil {
		return fmt.Errorf("%w: change events are disabled; set events.redis_addr", models.ErrValidation)
	}

	sub, err := a.bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	printer.Step("Watching %s\n", events.ChangesChannel(a.cfg.Events.Instance))
	return streamChanges(ctx, sub, printer.Out, watchProject)
}

// streamChanges writes one line per change until ctx ends or the
// subscription closes.
func streamChanges(ctx context.Context, sub *events.Subscription, w io.Writer, projectID string) error {
	errs := sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			printer.Warning("%v\n", err)
		case c, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if projectID != "" && c.ProjectID != projectID {
				continue
			}
			fmt.Fprintf(w, "%s %-6s %-20s project=%s record=%s\n",
				c.At.Format("15:04:05"), c.Op, c.Collection, c.ProjectID, c.RecordID)
		}
	}
}
