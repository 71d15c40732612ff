package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ldi/jobsite/internal/db"
	"github.com/ldi/jobsite/internal/printer"
)

var snapshotOut string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export or import checklist snapshots",
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Write a project's checklist to a JSONL snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotExport,
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <project-id> <file>",
	Short: "Replace a project's checklist with a JSONL snapshot",
	Args:  cobra.ExactArgs(2),
	RunE:  runSnapshotImport,
}

func init() {
	snapshotExportCmd.Flags().StringVarP(&snapshotOut, "out", "o", "", "Output file (default <snapshots.dir>/<project-id>.jsonl)")
	snapshotCmd.AddCommand(snapshotExportCmd, snapshotImportCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshotExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	path := snapshotOut
	if path == "" {
		path = db.SnapshotPath(a.cfg.Snapshots.Dir, args[0])
	}
	if err := a.db.ExportSnapshot(ctx, args[0], path); err != nil {
		return err
	}
	printer.Success("Exported snapshot to %s\n", path)
	return nil
}

func runSnapshotImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Auto snapshots must not rewrite the file while it is being read.
	a.db.DisableOnChange()
	if err := a.db.ImportSnapshot(ctx, args[0], args[1]); err != nil {
		return err
	}
	printer.Success("Imported snapshot %s into project %s\n", args[1], args[0])
	return nil
}
