package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ldi/jobsite/internal/checklist"
	"github.com/ldi/jobsite/internal/config"
	"github.com/ldi/jobsite/internal/logging"
	"github.com/ldi/jobsite/internal/printer"
	"github.com/ldi/jobsite/internal/ui"
	"github.com/ldi/jobsite/pkg/models"
)

var (
	version = "dev"

	cfgPath string

	// runMenu is replaced in tests.
	runMenu = ui.RunMenu
)

var rootCmd = &cobra.Command{
	Use:   "jobsite",
	Short: "Jobsite - construction project checklists",
	Long: `Jobsite tracks construction projects through their Pre-Con, Kickoff and
Post Project checklists. Tasks sitting behind an open inspection stay blocked
until the inspection is completed.

Run without a command to pick one from a menu.`,
	Args:               cobra.NoArgs,
	RunE:               runRoot,
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "Path to jobsite.yml")
}

func runRoot(cmd *cobra.Command, args []string) error {
	projects, users := menuOptions(context.Background())
	selected, err := runMenu(projects, users)
	if err != nil {
		return fmt.Errorf("failed to run menu: %w", err)
	}
	if selected.Command == "" {
		return nil
	}

	if selected.Command == ui.CommandChecklist {
		checklistAs = selected.UserEmail
		checklistPager = true
		return runChecklistShow(checklistShowCmd, []string{selected.ProjectID})
	}

	sub, _, err := cmd.Find([]string{selected.Command})
	if err != nil {
		return err
	}
	if sub == cmd || sub.RunE == nil {
		return fmt.Errorf("unknown command %q", selected.Command)
	}
	return sub.RunE(sub, nil)
}

// menuOptions lists what the menu can open. An uninitialized directory gets
// no options rather than a fresh database.
func menuOptions(ctx context.Context) ([]ui.Option, []ui.Option) {
	if !fileExists(cfgPath) {
		return nil, nil
	}
	a, err := openApp(ctx)
	if err != nil {
		return nil, nil
	}
	defer a.Close()

	projects, err := a.db.ListProjects(ctx, nil)
	if err != nil {
		logging.Logger.Warnf("Event ID: MENU_PROJECTS_FAILED, Description: failed to list projects: %v", err)
		return nil, nil
	}
	users, err := a.db.ListUsers(ctx, nil)
	if err != nil {
		logging.Logger.Warnf("Event ID: MENU_USERS_FAILED, Description: failed to list users: %v", err)
		return nil, nil
	}

	var projectOpts, userOpts []ui.Option
	for _, p := range projects {
		projectOpts = append(projectOpts, ui.Option{Label: p.Name, Value: p.ID})
	}
	for _, u := range users {
		userOpts = append(userOpts, ui.Option{Label: fmt.Sprintf("%s (%s)", u.Email, u.Role), Value: u.Email})
	}
	return projectOpts, userOpts
}

// Execute runs the root command and prints any failure.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	err := rootCmd.Execute()
	if err != nil {
		reportError(err)
	}
	return err
}

func reportError(err error) {
	var blocked *checklist.BlockedError
	switch {
	case errors.As(err, &blocked):
		printer.Blocked("%v\n", err)
		printer.Info("Complete %q first, then try again.\n", blocked.BlockerTitle)
	case errors.Is(err, models.ErrForbidden):
		printer.Error(err.Error(), "The user given with --as does not have the role this needs.",
			"Run the command --as a foreman or admin")
	case errors.Is(err, models.ErrUnauthorized):
		printer.Error(err.Error(), "", "Check the email given with --as")
	default:
		printer.Error(err.Error(), "")
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
