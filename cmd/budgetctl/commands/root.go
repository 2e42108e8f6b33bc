// Package commands implements the budgetctl operator CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgetbook/internal/config"
	"budgetbook/internal/database"
)

var rootCmd = &cobra.Command{
	Use:   "budgetctl",
	Short: "Budgetbook operator tool",
	Long: `budgetctl manages a Budgetbook deployment from the command line.
It applies and rolls back schema migrations and can post payroll
without going through the HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openDatabase loads configuration and connects to the database.
func openDatabase() (*config.Config, *database.Manager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	manager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	return cfg, manager, nil
}
