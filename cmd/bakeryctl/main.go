package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-bakery-orders/internal/config"
	"github.com/ariefcatur/go-bakery-orders/internal/inventory"
	"github.com/ariefcatur/go-bakery-orders/internal/logx"
	"github.com/ariefcatur/go-bakery-orders/internal/postgres"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	rootCmd := &cobra.Command{Use: "bakeryctl", SilenceUsage: true}
	rootCmd.AddCommand(
		migrateUpCommand(cfg),
		migrateDownCommand(cfg),
		createMigrationCommand(),
		productAddCommand(cfg),
	)

	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}

func createMigrationCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-create [name]",
		Short: "create sql migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up, down, err := postgres.CreateMigration(postgres.MigrationsDir, args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Println("Created SQL up script:", up)
			fmt.Println("Created SQL down script:", down)
			return nil
		},
	}
}

func migrateUpCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-up",
		Short: "migrate all the way up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed, err := postgres.MigrateUp(cfg.PostgresDSN)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println("No change in migration")
				return nil
			}
			fmt.Println("Migrated up")
			return nil
		},
	}
}

func migrateDownCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-down [steps]",
		Short: "roll back the given number of migrations, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			changed, err := postgres.MigrateDown(cfg.PostgresDSN, steps)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println("No change in migration")
				return nil
			}
			fmt.Println("Migrated down")
			return nil
		},
	}
}

func productAddCommand(cfg config.Config) *cobra.Command {
	var (
		name, price, unit, description string
		stock                          int
	)
	cmd := &cobra.Command{
		Use:   "product-add",
		Short: "register a product with its initial stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			unitPrice, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", price, err)
			}
			logger, err := logx.New(cfg.Env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			pool, err := postgres.Connect(ctx, cfg.PostgresDSN, 2)
			if err != nil {
				return err
			}
			defer pool.Close()
			db := postgres.New(pool, logger)

			svc := &inventory.Service{Tx: db, Reader: db, Log: logger, ServiceName: "bakeryctl"}
			p, err := svc.RegisterProduct(ctx, inventory.Product{
				Name:        name,
				Description: description,
				Unit:        unit,
				UnitPrice:   unitPrice,
			}, stock)
			if err != nil {
				return err
			}
			fmt.Printf("Created product %d (%s), stock %d\n", p.ID, p.Name, p.Stock)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().StringVar(&price, "price", "", "unit price, e.g. 12.50")
	cmd.Flags().StringVar(&unit, "unit", "Pieza", "unit of sale")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().IntVar(&stock, "stock", 0, "initial stock")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}
