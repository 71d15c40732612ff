package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ldi/jobsite/internal/printer"
	"github.com/ldi/jobsite/pkg/models"
)

var (
	projectAs       string
	projectName     string
	projectAddress  string
	projectCustomer string
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	Args:  cobra.NoArgs,
	RunE:  runProjectsCreate,
}

func init() {
	projectsCreateCmd.Flags().StringVar(&projectAs, "as", "", "Email of the admin creating the project")
	projectsCreateCmd.Flags().StringVar(&projectName, "name", "", "Project name (required)")
	projectsCreateCmd.Flags().StringVar(&projectAddress, "address", "", "Site address")
	projectsCreateCmd.Flags().StringVar(&projectCustomer, "customer", "", "Email of the owning customer")
	projectsCreateCmd.MarkFlagRequired("name")

	projectsCmd.AddCommand(projectsCreateCmd)
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	projects, err := a.db.ListProjects(ctx, nil)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		printer.Info("No projects yet. Create one with: jobsite projects create --as <admin> --name <name>\n")
		return nil
	}

	printer.Info("%-38s %-30s %-10s %s\n", "ID", "NAME", "STATUS", "ADDRESS")
	printer.Info("----------------------------------------------------------------------------------------------\n")
	for _, p := range projects {
		printer.Info("%-38s %-30s %-10s %s\n", p.ID, p.Name, p.Status, p.Address)
	}
	return nil
}

func runProjectsCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	actor, err := a.actorFor(ctx, projectAs)
	if err != nil {
		return err
	}

	p := &models.Project{Name: projectName, Address: projectAddress, Status: models.ProjectStatusActive}
	if projectCustomer != "" {
		u, err := a.db.GetUserByEmail(ctx, projectCustomer)
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("%w: no customer with email %s", models.ErrValidation, projectCustomer)
		}
		p.CustomerID = &u.ID
	}

	created, err := a.site.CreateProject(ctx, actor, p)
	if err != nil {
		return err
	}
	printer.Success("Created project %s (%s)\n", created.Name, created.ID)
	return nil
}
