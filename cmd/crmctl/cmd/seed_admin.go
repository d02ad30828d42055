package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedName string

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin <email> <password>",
	Short: "Create the first super admin",
	Long:  "Creates a SUPER_ADMIN employee. Does nothing when any employee already exists.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := employeeService()
		if err != nil {
			return err
		}
		created, err := svc.SeedSuperAdmin(args[0], args[1], seedName)
		if err != nil {
			return fmt.Errorf("failed to seed super admin: %w", err)
		}
		if !created {
			fmt.Println("Employees already exist, nothing to do")
			return nil
		}
		fmt.Printf("Super admin %s created\n", args[0])
		return nil
	},
}

func init() {
	seedAdminCmd.Flags().StringVar(&seedName, "name", "Super Administrator", "Display name")
}
