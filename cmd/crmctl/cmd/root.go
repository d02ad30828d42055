package cmd

import (
	"fmt"
	"log"
	"os"

	"go-brokerage-crm/internal/config"
	"go-brokerage-crm/internal/repository"
	"go-brokerage-crm/internal/service"
	"go-brokerage-crm/pkg/database"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	dsn     string
	migrate bool
)

var rootCmd = &cobra.Command{
	Use:   "crmctl",
	Short: "Brokerage CRM admin tool",
	Long: `crmctl performs maintenance on the CRM database directly: bootstrapping
the first super admin and resetting passwords when email delivery is unavailable.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found, relying on system env")
		}
		if dsn == "" {
			dsn = config.DatabaseURL()
		}
	},
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (defaults to DATABASE_URL or DB_* variables)")
	rootCmd.PersistentFlags().BoolVar(&migrate, "migrate", false, "Run schema migrations before the command")
	rootCmd.AddCommand(resetPasswordCmd)
	rootCmd.AddCommand(seedAdminCmd)
}

func openDB() (*gorm.DB, error) {
	opts := database.DefaultOptions
	opts.MaxOpenConns = 2
	db, err := database.Connect(dsn, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if migrate {
		if err := repository.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return db, nil
}

func employeeService() (service.EmployeeService, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	return service.NewEmployeeService(repository.NewEmployeeRepo(db)), nil
}
