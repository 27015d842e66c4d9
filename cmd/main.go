package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gabfadel/gab-health/cmd/bootstrap"
	"github.com/gabfadel/gab-health/internal/infrastructure/database"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gab-health",
		Short: "Clinic appointments and medical records API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Initialize application with all dependencies
			app, err := bootstrap.New()
			if err != nil {
				logrus.Errorf("Failed to initialize application: %v", err)
				return err
			}

			// Run the application
			app.Run()
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Cancel pending appointments whose date has passed, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Connect()
			if err != nil {
				return err
			}
			defer app.Close()

			rows, err := app.NewSweeper().RunOnce(context.Background())
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			fmt.Printf("Canceled %d expired appointments\n", rows)
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Connect()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := database.MigrateUp(app.DB); err != nil {
				return fmt.Errorf("migrate up failed: %w", err)
			}
			fmt.Println("Migrations applied")
			return nil
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")

			app, err := bootstrap.Connect()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := database.MigrateDown(app.DB, steps); err != nil {
				return fmt.Errorf("migrate down failed: %w", err)
			}
			fmt.Printf("Rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	downCmd.Flags().Int("steps", 1, "number of migrations to roll back")

	cmd.AddCommand(upCmd, downCmd)
	return cmd
}
