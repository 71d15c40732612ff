package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ldi/jobsite/internal/printer"
)

var materialsAs string

var materialsCmd = &cobra.Command{
	Use:   "materials",
	Short: "Manage project materials",
}

var materialsImportCmd = &cobra.Command{
	Use:   "import <project-id> <file>",
	Short: "Import materials from an .xlsx or .xls sheet",
	Long: `Import materials from the first sheet of an .xlsx or .xls workbook.

The first row holds the headers. material_name (or "material"/"name") is
required; quantity, unit and unit_cost are optional. Rows without a name are
skipped and any invalid row rejects the whole import.`,
	Args: cobra.ExactArgs(2),
	RunE: runMaterialsImport,
}

func init() {
	materialsImportCmd.Flags().StringVar(&materialsAs, "as", "", "Email of the foreman or admin importing")
	materialsCmd.AddCommand(materialsImportCmd)
	rootCmd.AddCommand(materialsCmd)
}

func runMaterialsImport(cmd *cobra.Command, args []string) error {
	projectID, path := args[0], args[1]

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	actor, err := a.actorFor(ctx, materialsAs)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	items, err := a.site.ImportMaterials(ctx, actor, projectID, filepath.Base(path), f)
	if err != nil {
		return err
	}
	printer.Success("Imported %d materials\n", len(items))
	return nil
}
