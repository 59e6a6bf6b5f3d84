package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	webAdapter "bizbooks/internal/adapters/web"
	"bizbooks/internal/app"
	"bizbooks/internal/core"
	"bizbooks/internal/db"
	"bizbooks/internal/render"
	"bizbooks/internal/store"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if os.Getenv("LOG_PRETTY") == "1" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	if pool != nil {
		defer pool.Close()
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	filesDir := filepath.Join(dataDir, "files")

	health := store.NewHealth(pool, log)
	companies := store.NewCompanyStore(pool, health, filepath.Join(dataDir, "companies.json"), log)
	invoices := store.NewInvoiceStore(pool, health, filepath.Join(dataDir, "invoices.json"), log)
	receipts := store.NewReceiptStore(pool, health, filepath.Join(dataDir, "receipts.json"), log)
	expenses := store.NewExpenseStore(pool, health, filepath.Join(dataDir, "expenses.json"), log)
	reconciler := store.NewReconciler(pool, health, companies, invoices, receipts, expenses, log)

	vault := core.NewDocumentVault(filesDir, log)
	renderer := render.NewHTMLRenderer()
	statusSync := core.NewStatusSync(invoices, receipts, log)

	companyService := core.NewCompanyService(companies, invoices, receipts, expenses, vault, log)
	invoiceService := core.NewInvoiceService(companies, invoices, receipts, statusSync, renderer, vault, log)
	receiptService := core.NewReceiptService(companies, invoices, receipts, statusSync, renderer, vault, log)
	expenseService := core.NewExpenseService(companies, expenses, log)
	reportingService := core.NewReportingService(pool, companies)

	adminSecret := os.Getenv("ADMIN_SECRET")
	if adminSecret == "" {
		log.Warn().Msg("ADMIN_SECRET is not set, admin API disabled")
	}
	adminService := core.NewAdminService(adminSecret, companyService, reconciler, log)

	svc := app.NewAppService(companyService, invoiceService, receiptService,
		expenseService, reportingService, adminService, health)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = adminSecret
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins, jwtSecret, adminSecret, filesDir, log)

	log.Info().Str("port", port).Msg("server starting")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
