package main

import (
	"database/sql"
	"fmt"

	"taskmanager/configs"
	"taskmanager/internal/repository"
	"taskmanager/pkg/database"
	"taskmanager/pkg/logger"

	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the Postgres schema",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the users and tasks tables if they do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPostgres(repository.CreateTableIfNotExists)
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the users and tasks tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPostgres(func(db *sql.DB) error {
			if err := repository.DeleteAllTable(db); err != nil {
				return err
			}
			return repository.CreateTableIfNotExists(db)
		})
	},
}

func withPostgres(fn func(db *sql.DB) error) error {
	cfg, err := configs.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != "postgres" {
		return fmt.Errorf("db commands need STORE_DRIVER=postgres, got %q", cfg.StoreDriver)
	}
	if err := logger.InitLoggers(cfg.LogDir); err != nil {
		return err
	}
	defer logger.SyncLoggers()

	db, err := database.ConnectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func init() {
	dbCmd.AddCommand(dbInitCmd, dbResetCmd)
	rootCmd.AddCommand(dbCmd)
}
