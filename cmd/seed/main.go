package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zfogg/biolink/internal/config"
	"github.com/zfogg/biolink/internal/database"
	"github.com/zfogg/biolink/internal/logger"
	"github.com/zfogg/biolink/internal/seed"
)

var userCount int

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake profiles and traffic",
}

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Seed the development database with realistic data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSeeder(func(ctx context.Context, s *seed.Seeder) error {
			fmt.Println("🌱 Seeding development database...")
			stats, err := s.SeedDev(ctx, userCount)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Seeded %d users, %d links, %d icons, %d page views, %d clicks, %d comments\n",
				stats.Users, stats.Links, stats.Icons, stats.PageViews, stats.LinkClicks+stats.IconClicks, stats.Comments)
			return nil
		})
	},
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Seed the fixed e2e users (alice, bob, charlie)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSeeder(func(ctx context.Context, s *seed.Seeder) error {
			fmt.Println("🧪 Seeding test database...")
			stats, err := s.SeedTest(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Created %d test users\n", stats.Users)
			return nil
		})
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all seeded users and their data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSeeder(func(ctx context.Context, s *seed.Seeder) error {
			fmt.Println("🧹 Cleaning seed data...")
			n, err := s.Clean(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("✅ Removed %d seeded users\n", n)
			return nil
		})
	},
}

func withSeeder(fn func(context.Context, *seed.Seeder) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.Log, cfg.Server.Environment); err != nil {
		return err
	}
	defer logger.Close()

	db, err := database.Open(cfg.Database, cfg.Server.Environment)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}
	return fn(context.Background(), seed.NewSeeder(db, cfg.Server.BaseURL))
}

func main() {
	devCmd.Flags().IntVarP(&userCount, "users", "n", 25, "Number of users to create")
	rootCmd.AddCommand(devCmd, testCmd, cleanCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Seeding failed: %v\n", err)
		os.Exit(1)
	}
}
