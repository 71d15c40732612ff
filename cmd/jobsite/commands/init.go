package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ldi/jobsite/internal/auth"
	"github.com/ldi/jobsite/internal/config"
	"github.com/ldi/jobsite/internal/printer"
	"github.com/ldi/jobsite/pkg/models"
)

var (
	initForce         bool
	initAdminEmail    string
	initAdminPassword string
	initAdminName     string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a jobsite workspace",
	Long: `Initialize a jobsite workspace in the current directory.

Creates:
  • jobsite.yml - configuration file (kept if it already exists)
  • .jobsite/   - database, snapshots and uploaded files

Pass --admin-email and --admin-password to create the first admin user.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing jobsite.yml with defaults")
	initCmd.Flags().StringVar(&initAdminEmail, "admin-email", "", "Email of the first admin user")
	initCmd.Flags().StringVar(&initAdminPassword, "admin-password", "", "Password of the first admin user")
	initCmd.Flags().StringVar(&initAdminName, "admin-name", "Administrator", "Full name of the first admin user")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if fileExists(cfgPath) && !initForce {
		printer.Warning("%s already exists, keeping it\n", cfgPath)
	} else {
		if err := config.Default().Write(cfgPath); err != nil {
			return err
		}
		printer.Success("Created %s\n", cfgPath)
	}

	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	dataDir := filepath.Dir(a.cfg.Database.Path)
	gitignore := filepath.Join(dataDir, ".gitignore")
	if err := os.WriteFile(gitignore, []byte("jobsite.db*\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	printer.Success("Initialized database at %s\n", a.cfg.Database.Path)

	if initAdminEmail != "" {
		u, err := a.auth.Register(ctx, auth.NewUser{
			Email:    initAdminEmail,
			Password: initAdminPassword,
			FullName: initAdminName,
			Role:     models.RoleAdmin,
		})
		if err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		printer.Success("Created admin %s\n", u.Email)
	}

	printer.Success("Jobsite initialized successfully\n")
	return nil
}
