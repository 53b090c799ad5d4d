package main

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hpmsklad/server/internal/config"
	"hpmsklad/server/internal/database"
	"hpmsklad/server/internal/models"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrace schématu databáze",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending SQL migrations (PostgreSQL)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrationDB(func(db *sql.DB) error {
				if err := database.MigrateUp(db); err != nil {
					return err
				}
				return a.printVersion(cmd, db)
			})
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrationDB(func(db *sql.DB) error {
				if err := database.MigrateDown(db, steps); err != nil {
					return err
				}
				return a.printVersion(cmd, db)
			})
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrationDB(func(db *sql.DB) error {
				return a.printVersion(cmd, db)
			})
		},
	}

	forceCmd := &cobra.Command{
		Use:   "force [version]",
		Short: "Set the schema version without running SQL (dirty recovery)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return a.withMigrationDB(func(db *sql.DB) error {
				if err := database.MigrateForce(db, version); err != nil {
					return err
				}
				a.logger.Warn("Schema version forced", zap.Int("version", version))
				return a.printVersion(cmd, db)
			})
		},
	}

	autoCmd := &cobra.Command{
		Use:   "auto",
		Short: "Create tables from the gorm models (SQLite and development)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(func(db *gorm.DB, cfg *config.Config) error {
				if err := models.AutoMigrate(db); err != nil {
					return err
				}
				a.logger.Info("AutoMigrate completed")
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}

	cmd.AddCommand(upCmd, downCmd, versionCmd, forceCmd, autoCmd)
	return cmd
}

// withMigrationDB открывает отдельное lib/pq соединение для golang-migrate
func (a *app) withMigrationDB(fn func(db *sql.DB) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if isSQLite(cfg.DatabaseURL) {
		return fmt.Errorf("SQL migrations support PostgreSQL only, use \"migrate auto\" for SQLite")
	}
	db, err := database.OpenMigrationDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func (a *app) printVersion(cmd *cobra.Command, db *sql.DB) error {
	version, dirty, err := database.MigrateVersion(db)
	if err != nil {
		return err
	}
	a.logger.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", version, dirty)
	return nil
}
