package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ldi/jobsite/internal/auth"
	"github.com/ldi/jobsite/internal/printer"
	"github.com/ldi/jobsite/pkg/models"
)

var (
	userEmail    string
	userPassword string
	userName     string
	userRole     string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user profiles",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user profile",
	Args:  cobra.NoArgs,
	RunE:  runUserCreate,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user profiles",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Email address (required)")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "Password (required)")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "Full name")
	userCreateCmd.Flags().StringVar(&userRole, "role", string(models.RoleEmployee), "admin, foreman, employee, customer or subcontractor")
	userCreateCmd.MarkFlagRequired("email")
	userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd, userListCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.auth.Register(ctx, auth.NewUser{
		Email:    userEmail,
		Password: userPassword,
		FullName: userName,
		Role:     models.Role(userRole),
	})
	if err != nil {
		return err
	}
	printer.Success("Created %s %s (%s)\n", u.Role, u.Email, u.ID)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	users, err := a.db.ListUsers(ctx, nil)
	if err != nil {
		return err
	}

	printer.Info("%-30s %-25s %-15s\n", "EMAIL", "NAME", "ROLE")
	printer.Info("----------------------------------------------------------------------\n")
	for _, u := range users {
		printer.Info("%-30s %-25s %-15s\n", u.Email, u.FullName, u.Role)
	}
	return nil
}
