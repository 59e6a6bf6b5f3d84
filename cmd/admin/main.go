package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"bizbooks/internal/core"
	"bizbooks/internal/db"
	"bizbooks/internal/store"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var secretFlag string

var rootCmd = &cobra.Command{
	Use:   "bizbooks-admin",
	Short: "Operational tooling for the record-keeping stores",
	Long: `bizbooks-admin runs the administrative operations directly against the
configured stores: store statistics, duplicate scanning, fallback-to-primary
migration and company removal.

All commands require the shared admin secret, supplied with --secret or the
ADMIN_SECRET environment variable.`,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print record counts per store",
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, err := setup()
		if err != nil {
			return err
		}
		stats, err := admin.Stats(cmd.Context(), secretFlag)
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan-duplicates",
	Short: "Report fallback companies whose unique fields collide",
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, err := setup()
		if err != nil {
			return err
		}
		dupes, err := admin.ScanDuplicates(cmd.Context(), secretFlag)
		if err != nil {
			return err
		}
		if len(dupes) == 0 {
			fmt.Println("No duplicates found.")
			return nil
		}
		return printJSON(dupes)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy fallback records into the primary store",
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, err := setup()
		if err != nil {
			return err
		}
		report, err := admin.Migrate(cmd.Context(), secretFlag)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List every company across both stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, err := setup()
		if err != nil {
			return err
		}
		companies, err := admin.ListCompanies(cmd.Context(), secretFlag)
		if err != nil {
			return err
		}
		return printJSON(companies)
	},
}

var deleteCompanyCmd = &cobra.Command{
	Use:   "delete-company <company-id>",
	Short: "Remove a company and everything it owns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, err := setup()
		if err != nil {
			return err
		}
		if err := admin.DeleteCompany(cmd.Context(), secretFlag, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&secretFlag, "secret", os.Getenv("ADMIN_SECRET"), "shared admin secret")
	rootCmd.AddCommand(statsCmd, scanCmd, migrateCmd, companiesCmd, deleteCompanyCmd)
}

// setup wires the stores and services the same way the server does.
func setup() (*core.AdminService, error) {
	_ = godotenv.Load()
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	pool, err := db.NewPool(context.Background(), log)
	if err != nil {
		return nil, err
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	health := store.NewHealth(pool, log)
	companies := store.NewCompanyStore(pool, health, filepath.Join(dataDir, "companies.json"), log)
	invoices := store.NewInvoiceStore(pool, health, filepath.Join(dataDir, "invoices.json"), log)
	receipts := store.NewReceiptStore(pool, health, filepath.Join(dataDir, "receipts.json"), log)
	expenses := store.NewExpenseStore(pool, health, filepath.Join(dataDir, "expenses.json"), log)
	reconciler := store.NewReconciler(pool, health, companies, invoices, receipts, expenses, log)

	vault := core.NewDocumentVault(filepath.Join(dataDir, "files"), log)
	companyService := core.NewCompanyService(companies, invoices, receipts, expenses, vault, log)

	return core.NewAdminService(os.Getenv("ADMIN_SECRET"), companyService, reconciler, log), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
