package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ldi/jobsite/internal/printer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.db.Stats(ctx)
	if err != nil {
		return err
	}

	printer.Info("Jobsite Status\n")
	printer.Info("==============\n")
	printer.Info("Database:    %s\n", a.cfg.Database.Path)
	printer.Info("Users:       %d\n", stats.Users)
	printer.Info("Projects:    %d\n", stats.Projects)
	printer.Info("Sections:    %d\n", stats.Sections)
	printer.Info("Tasks:       %d\n", stats.Tasks)
	printer.Info("  Completed: %d\n", stats.Completed)
	printer.Info("  Open inspections: %d\n", stats.Blocking)

	switch {
	case a.bus == nil:
		printer.Info("Events:      disabled\n")
	case a.bus.Ping(ctx) != nil:
		printer.Warning("Events:      redis at %s unreachable\n", a.cfg.Events.RedisAddr)
	default:
		printer.Success("Events:      publishing to %s\n", a.cfg.Events.RedisAddr)
	}
	return nil
}
