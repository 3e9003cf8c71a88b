package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zfogg/biolink/internal/config"
	"github.com/zfogg/biolink/internal/database"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/models"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the biolink database schema",
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Create or update all tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			fmt.Println("📈 Running migrations...")
			if err := database.Migrate(db); err != nil {
				return err
			}
			fmt.Println("✅ All migrations completed successfully!")
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which tables exist and how many rows they hold",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			pending := 0
			for _, model := range models.AllModels() {
				stmt := &gorm.Statement{DB: db}
				if err := stmt.Parse(model); err != nil {
					return err
				}
				table := stmt.Schema.Table
				if !db.Migrator().HasTable(model) {
					pending++
					fmt.Printf("  ❌ %-14s missing\n", table)
					continue
				}
				var rows int64
				if err := db.Model(model).Count(&rows).Error; err != nil {
					return err
				}
				fmt.Printf("  ✅ %-14s %d rows\n", table, rows)
			}
			if pending > 0 {
				return fmt.Errorf("%d tables missing, run `migrate up`", pending)
			}
			return nil
		})
	},
}

func withDB(fn func(*gorm.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.Log, cfg.Server.Environment); err != nil {
		return err
	}
	defer logger.Close()

	fmt.Println("🔄 Connecting to database...")
	db, err := database.Open(cfg.Database, cfg.Server.Environment)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	return fn(db)
}

func main() {
	rootCmd.AddCommand(upCmd, statusCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
