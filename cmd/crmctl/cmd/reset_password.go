package cmd

import (
	"errors"
	"fmt"

	"go-brokerage-crm/internal/service"

	"github.com/spf13/cobra"
)

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password <email> <new-password>",
	Short: "Set an employee's password",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := employeeService()
		if err != nil {
			return err
		}
		err = svc.ResetPassword(args[0], args[1])
		if errors.Is(err, service.ErrNotFound) {
			return fmt.Errorf("no employee with email %s", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to reset password: %w", err)
		}
		fmt.Printf("Password for %s has been reset\n", args[0])
		return nil
	},
}
