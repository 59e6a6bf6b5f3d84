package store

import (
	"context"
	"fmt"

	"bizbooks/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Reconciler merges fallback-store records into the primary store once it is
// reachable again, and runs the cross-store admin scans. Migration is
// idempotent: every merge is an upsert keyed by the record's natural key, so
// running it twice leaves the primary in the same state as running it once.
type Reconciler struct {
	pool      *pgxpool.Pool
	health    *Health
	companies *CompanyStore
	invoices  *InvoiceStore
	receipts  *ReceiptStore
	expenses  *ExpenseStore
	log       zerolog.Logger
}

func NewReconciler(pool *pgxpool.Pool, health *Health, companies *CompanyStore,
	invoices *InvoiceStore, receipts *ReceiptStore, expenses *ExpenseStore, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		pool:      pool,
		health:    health,
		companies: companies,
		invoices:  invoices,
		receipts:  receipts,
		expenses:  expenses,
		log:       log.With().Str("component", "reconciler").Logger(),
	}
}

// Migrate pushes every fallback record into the primary. Individual record
// failures are collected in the report; the run never aborts on one record.
func (r *Reconciler) Migrate(ctx context.Context) (*core.MigrationReport, error) {
	r.health.Invalidate()
	if !r.health.Reachable(ctx) {
		return nil, fmt.Errorf("cannot migrate: %w", core.ErrPrimaryUnavailable)
	}

	report := &core.MigrationReport{}
	fail := func(kind, key string, err error) {
		report.Failures++
		report.Errors = append(report.Errors, fmt.Sprintf("%s %s: %v", kind, key, err))
		r.log.Warn().Err(err).Str("kind", kind).Str("key", key).Msg("record migration failed")
	}

	companies, err := r.companies.FallbackAll()
	if err != nil {
		return nil, fmt.Errorf("read fallback companies: %w", err)
	}
	for _, c := range companies {
		if err := r.companies.upsertPrimary(ctx, c); err != nil {
			fail("company", c.ID, err)
			continue
		}
		report.Companies++
	}

	invoices, err := r.invoices.FallbackAll()
	if err != nil {
		return nil, fmt.Errorf("read fallback invoices: %w", err)
	}
	for _, inv := range invoices {
		if err := r.invoices.upsertPrimary(ctx, inv); err != nil {
			fail("invoice", inv.CompanyID+"/"+inv.InvoiceNumber, err)
			continue
		}
		report.Invoices++
	}

	receipts, err := r.receipts.FallbackAll()
	if err != nil {
		return nil, fmt.Errorf("read fallback receipts: %w", err)
	}
	for _, rc := range receipts {
		if err := r.receipts.upsertPrimary(ctx, rc); err != nil {
			fail("receipt", rc.CompanyID+"/"+rc.ReceiptNumber, err)
			continue
		}
		report.Receipts++
	}

	expenses, err := r.expenses.FallbackAll()
	if err != nil {
		return nil, fmt.Errorf("read fallback expenses: %w", err)
	}
	for _, e := range expenses {
		if err := r.migrateExpense(ctx, e); err != nil {
			fail("expense", e.CompanyID+"/"+e.Month, err)
			continue
		}
		report.Expenses++
	}

	r.log.Info().
		Int("companies", report.Companies).
		Int("invoices", report.Invoices).
		Int("receipts", report.Receipts).
		Int("expenses", report.Expenses).
		Int("failures", report.Failures).
		Msg("fallback migration complete")
	return report, nil
}

// migrateExpense merges one fallback expense into the primary. Daily entries
// upsert on (company_id, month, day); undated entries only insert when no
// identical row exists, since they have no unique natural key.
func (r *Reconciler) migrateExpense(ctx context.Context, e core.Expense) error {
	if e.Day != nil {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO expenses (company_id, month, category, amount, description, day,
				currency_symbol, currency_code, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (company_id, month, day) WHERE day IS NOT NULL DO UPDATE SET
				category = EXCLUDED.category, amount = EXCLUDED.amount,
				description = EXCLUDED.description,
				currency_symbol = EXCLUDED.currency_symbol,
				currency_code = EXCLUDED.currency_code`,
			e.CompanyID, e.Month, e.Category, e.Amount, e.Description, e.Day,
			e.CurrencySymbol, e.CurrencyCode, e.CreatedAt,
		)
		return err
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO expenses (company_id, month, category, amount, description, day,
			currency_symbol, currency_code, created_at)
		SELECT $1,$2,$3,$4,$5,NULL,$6,$7,$8
		WHERE NOT EXISTS (
			SELECT 1 FROM expenses
			WHERE company_id = $1 AND month = $2 AND category = $3
			  AND amount = $4 AND description = $5 AND day IS NULL
		)`,
		e.CompanyID, e.Month, e.Category, e.Amount, e.Description,
		e.CurrencySymbol, e.CurrencyCode, e.CreatedAt,
	)
	return err
}

// ScanDuplicates reports fallback companies whose unique fields collide with
// a different company in the primary store. These are the records a
// migration would reject or silently overwrite.
func (r *Reconciler) ScanDuplicates(ctx context.Context) ([]core.DuplicateRecord, error) {
	if !r.health.Reachable(ctx) {
		return nil, fmt.Errorf("cannot scan: %w", core.ErrPrimaryUnavailable)
	}

	fallback, err := r.companies.FallbackAll()
	if err != nil {
		return nil, fmt.Errorf("read fallback companies: %w", err)
	}

	var dups []core.DuplicateRecord
	for _, c := range fallback {
		cand := core.UniqueFields{Name: c.Name}
		if c.Email != nil {
			cand.Email = *c.Email
		}
		if c.Phone != nil {
			cand.Phone = *c.Phone
		}
		if c.AccountNumber != nil {
			cand.AccountNumber = *c.AccountNumber
		}
		matches, err := r.companies.FindMatchingUnique(ctx, cand, c.ID)
		if err != nil {
			return nil, fmt.Errorf("scan company %s: %w", c.ID, err)
		}
		for _, m := range matches {
			fields := core.CollidingFields(cand, m)
			if len(fields) == 0 {
				continue
			}
			dups = append(dups, core.DuplicateRecord{
				CompanyID: c.ID,
				Name:      c.Name,
				Fields:    fields,
				MatchedID: m.ID,
			})
		}
	}
	return dups, nil
}

// Stats reports a record census for both stores.
func (r *Reconciler) Stats(ctx context.Context) (*core.StoreStats, error) {
	stats := &core.StoreStats{PrimaryReachable: r.health.Reachable(ctx)}

	var err error
	if stats.Fallback.Companies, err = r.companies.CountFallback(); err != nil {
		return nil, fmt.Errorf("count fallback companies: %w", err)
	}
	if stats.Fallback.Invoices, err = r.invoices.CountFallback(); err != nil {
		return nil, fmt.Errorf("count fallback invoices: %w", err)
	}
	if stats.Fallback.Receipts, err = r.receipts.CountFallback(); err != nil {
		return nil, fmt.Errorf("count fallback receipts: %w", err)
	}
	if stats.Fallback.Expenses, err = r.expenses.CountFallback(); err != nil {
		return nil, fmt.Errorf("count fallback expenses: %w", err)
	}

	if !stats.PrimaryReachable {
		return stats, nil
	}
	if stats.Primary.Companies, err = r.companies.CountPrimary(ctx); err != nil {
		return nil, fmt.Errorf("count primary companies: %w", err)
	}
	if stats.Primary.Invoices, err = r.invoices.CountPrimary(ctx); err != nil {
		return nil, fmt.Errorf("count primary invoices: %w", err)
	}
	if stats.Primary.Receipts, err = r.receipts.CountPrimary(ctx); err != nil {
		return nil, fmt.Errorf("count primary receipts: %w", err)
	}
	if stats.Primary.Expenses, err = r.expenses.CountPrimary(ctx); err != nil {
		return nil, fmt.Errorf("count primary expenses: %w", err)
	}
	return stats, nil
}
