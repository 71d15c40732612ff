package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ldi/jobsite/internal/printer"
	"github.com/ldi/jobsite/internal/report"
	"github.com/ldi/jobsite/internal/ui/components"
	"github.com/ldi/jobsite/pkg/models"
)

var (
	checklistAs    string
	checklistPhase string
	checklistWidth int
	checklistPager bool
	checklistOut   string
)

// runPager is replaced in tests.
var runPager = components.RunPager

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Show or export a project checklist",
}

var checklistShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Render a project checklist",
	Long: `Render a project checklist grouped by phase and section.

Tasks behind an open inspection are marked BLOCKED along with the
inspection they are waiting on.`,
	Args: cobra.ExactArgs(1),
	RunE: runChecklistShow,
}

var checklistExportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Export a project checklist as an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runChecklistExport,
}

func init() {
	for _, c := range []*cobra.Command{checklistShowCmd, checklistExportCmd} {
		c.Flags().StringVar(&checklistAs, "as", "", "Email of the user viewing the checklist")
		c.Flags().StringVar(&checklistPhase, "phase", "", "Only this phase: pre_con, kickoff or post_project")
	}
	checklistShowCmd.Flags().IntVar(&checklistWidth, "width", 80, "Render width in columns")
	checklistShowCmd.Flags().BoolVar(&checklistPager, "pager", false, "Open the checklist in a scrollable pager")
	checklistExportCmd.Flags().StringVarP(&checklistOut, "out", "o", "", "Output file (default <project-id>-checklist.xlsx)")

	checklistCmd.AddCommand(checklistShowCmd, checklistExportCmd)
	rootCmd.AddCommand(checklistCmd)
}

func parsePhase(raw string) (*models.Phase, error) {
	if raw == "" {
		return nil, nil
	}
	p := models.Phase(raw)
	if !p.Valid() {
		return nil, fmt.Errorf("%w: invalid phase %q", models.ErrValidation, raw)
	}
	return &p, nil
}

func runChecklistShow(cmd *cobra.Command, args []string) error {
	phase, err := parsePhase(checklistPhase)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	actor, err := a.actorFor(ctx, checklistAs)
	if err != nil {
		return err
	}
	view, err := a.checklist.Checklist(ctx, actor, args[0], phase)
	if err != nil {
		return err
	}

	out := components.NewChecklist(view, checklistWidth).Render()
	if checklistPager {
		return runPager(view.Project.Name, out)
	}
	printer.Info("%s\n", out)
	return nil
}

func runChecklistExport(cmd *cobra.Command, args []string) error {
	phase, err := parsePhase(checklistPhase)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	actor, err := a.actorFor(ctx, checklistAs)
	if err != nil {
		return err
	}
	view, err := a.checklist.Checklist(ctx, actor, args[0], phase)
	if err != nil {
		return err
	}

	path := checklistOut
	if path == "" {
		path = args[0] + "-checklist.xlsx"
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := report.Write(f, view); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	printer.Success("Exported %s checklist to %s\n", view.Project.Name, path)
	return nil
}
