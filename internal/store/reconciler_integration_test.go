package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bizbooks/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, "TRUNCATE TABLE expenses, receipts, invoices, companies CASCADE")
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}
	return pool
}

// strandedStores builds the dual-store adapters with a never-reachable health
// check, so every write lands only in the fallback files. The reconciler is
// then pointed at the real pool to merge them.
type strandedStores struct {
	companies *CompanyStore
	invoices  *InvoiceStore
	receipts  *ReceiptStore
	expenses  *ExpenseStore
}

func newStrandedStores(t *testing.T, pool *pgxpool.Pool) strandedStores {
	t.Helper()
	dir := t.TempDir()
	down := NewHealth(nil, zerolog.Nop())
	nop := zerolog.Nop()
	return strandedStores{
		companies: NewCompanyStore(pool, down, filepath.Join(dir, "companies.json"), nop),
		invoices:  NewInvoiceStore(pool, down, filepath.Join(dir, "invoices.json"), nop),
		receipts:  NewReceiptStore(pool, down, filepath.Join(dir, "receipts.json"), nop),
		expenses:  NewExpenseStore(pool, down, filepath.Join(dir, "expenses.json"), nop),
	}
}

func seedStranded(t *testing.T, s strandedStores) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.companies.Upsert(ctx, testCompany("ACM/GM-000001", "Acme")); err != nil {
		t.Fatal(err)
	}
	if err := s.invoices.Upsert(ctx, core.Invoice{
		CompanyID: "ACM/GM-000001", InvoiceNumber: "INV-1", CustomerName: "Ada",
		InvoiceDate: now, Total: decimal.NewFromInt(120),
		Status: core.InvoiceUnpaid, CreatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.receipts.Upsert(ctx, core.Receipt{
		CompanyID: "ACM/GM-000001", ReceiptNumber: "RCP-1", CustomerName: "Ada",
		ReceiptDate: now, AmountPaid: decimal.NewFromInt(120), CreatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}
	day := 12
	daily := testExpense("ACM/GM-000001", "2026-08", core.CategoryExpense, 50)
	daily.Day = &day
	undated := testExpense("ACM/GM-000001", "2026-08", core.CategoryProduction, 100)
	for _, e := range []core.Expense{daily, undated} {
		if err := s.expenses.Insert(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
}

func primaryCounts(t *testing.T, pool *pgxpool.Pool) (companies, invoices, receipts, expenses int) {
	t.Helper()
	ctx := context.Background()
	for _, q := range []struct {
		table string
		dst   *int
	}{
		{"companies", &companies},
		{"invoices", &invoices},
		{"receipts", &receipts},
		{"expenses", &expenses},
	} {
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+q.table).Scan(q.dst); err != nil {
			t.Fatalf("count %s: %v", q.table, err)
		}
	}
	return
}

func TestReconciler_MigrateIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	s := newStrandedStores(t, pool)
	seedStranded(t, s)

	rec := NewReconciler(pool, NewHealth(pool, zerolog.Nop()), s.companies, s.invoices, s.receipts, s.expenses, zerolog.Nop())

	report, err := rec.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if report.Companies != 1 || report.Invoices != 1 || report.Receipts != 1 || report.Expenses != 2 {
		t.Errorf("report = %+v, want 1/1/1/2 merged", report)
	}
	if report.Failures != 0 {
		t.Errorf("failures = %d (%v), want none", report.Failures, report.Errors)
	}

	// A second run upserts the same records and must not duplicate anything,
	// including the undated expense which has no unique natural key.
	if _, err := rec.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	c, i, r, e := primaryCounts(t, pool)
	if c != 1 || i != 1 || r != 1 || e != 2 {
		t.Errorf("primary counts after rerun = %d/%d/%d/%d, want 1/1/1/2", c, i, r, e)
	}
}

func TestReconciler_ScanDuplicates(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	_, err := pool.Exec(ctx, `
		INSERT INTO companies (id, name, phone) VALUES ('OTH/GM-000001', 'Acme', '0800-1')`)
	if err != nil {
		t.Fatalf("seed primary company: %v", err)
	}

	s := newStrandedStores(t, pool)
	phone := "0800-1"
	stranded := testCompany("ACM/GM-000001", "Acme")
	stranded.Phone = &phone
	if err := s.companies.Upsert(ctx, stranded); err != nil {
		t.Fatal(err)
	}

	rec := NewReconciler(pool, NewHealth(pool, zerolog.Nop()), s.companies, s.invoices, s.receipts, s.expenses, zerolog.Nop())
	dups, err := rec.ScanDuplicates(ctx)
	if err != nil {
		t.Fatalf("ScanDuplicates failed: %v", err)
	}
	if len(dups) != 1 {
		t.Fatalf("duplicates = %d, want 1", len(dups))
	}
	d := dups[0]
	if d.CompanyID != "ACM/GM-000001" || d.MatchedID != "OTH/GM-000001" {
		t.Errorf("duplicate = %+v, want the stranded company matched against the primary one", d)
	}
	if got := strings.Join(d.Fields, ","); got != "name,phone" {
		t.Errorf("fields = %s, want name,phone", got)
	}
}

func TestReconciler_Stats(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	s := newStrandedStores(t, pool)
	seedStranded(t, s)

	rec := NewReconciler(pool, NewHealth(pool, zerolog.Nop()), s.companies, s.invoices, s.receipts, s.expenses, zerolog.Nop())

	stats, err := rec.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if !stats.PrimaryReachable {
		t.Error("primary should be reachable in the integration environment")
	}
	if stats.Fallback.Companies != 1 || stats.Fallback.Invoices != 1 ||
		stats.Fallback.Receipts != 1 || stats.Fallback.Expenses != 2 {
		t.Errorf("fallback census = %+v, want 1/1/1/2", stats.Fallback)
	}
	if stats.Primary.Companies != 0 || stats.Primary.Expenses != 0 {
		t.Errorf("primary census = %+v, want empty before migration", stats.Primary)
	}

	if _, err := rec.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	stats, err = rec.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats after migrate failed: %v", err)
	}
	if stats.Primary.Companies != 1 || stats.Primary.Invoices != 1 ||
		stats.Primary.Receipts != 1 || stats.Primary.Expenses != 2 {
		t.Errorf("primary census after migrate = %+v, want 1/1/1/2", stats.Primary)
	}
}
