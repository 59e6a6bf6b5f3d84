package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"bizbooks/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// InvoiceStore is the dual-store adapter for invoices. Line items are stored
// as a JSONB column in the primary and inline in the fallback array.
type InvoiceStore struct {
	pool   *pgxpool.Pool
	health *Health
	file   *jsonFile[core.Invoice]
	log    zerolog.Logger
}

func NewInvoiceStore(pool *pgxpool.Pool, health *Health, fallbackPath string, log zerolog.Logger) *InvoiceStore {
	return &InvoiceStore{
		pool:   pool,
		health: health,
		file:   newJSONFile[core.Invoice](fallbackPath),
		log:    log.With().Str("store", "invoices").Logger(),
	}
}

func invoiceKey(companyID, invoiceNumber string) func(core.Invoice) bool {
	return func(i core.Invoice) bool {
		return i.CompanyID == companyID && i.InvoiceNumber == invoiceNumber
	}
}

const invoiceColumns = `company_id, invoice_number, customer_name, invoice_date, due_date,
	items, total, currency_symbol, currency_code, status, paid_at, document_path, created_at`

func scanInvoice(row pgx.Row) (*core.Invoice, error) {
	inv := &core.Invoice{}
	var items []byte
	err := row.Scan(
		&inv.CompanyID, &inv.InvoiceNumber, &inv.CustomerName, &inv.InvoiceDate,
		&inv.DueDate, &items, &inv.Total, &inv.CurrencySymbol, &inv.CurrencyCode,
		&inv.Status, &inv.PaidAt, &inv.DocumentPath, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &inv.Items); err != nil {
			return nil, fmt.Errorf("decode invoice items: %w", err)
		}
	}
	return inv, nil
}

func (s *InvoiceStore) Upsert(ctx context.Context, inv core.Invoice) error {
	if s.health.Reachable(ctx) {
		if err := s.upsertPrimary(ctx, inv); err != nil {
			s.log.Warn().Err(err).
				Str("company_id", inv.CompanyID).
				Str("invoice_number", inv.InvoiceNumber).
				Msg("primary upsert failed, fallback only")
		}
	}
	if err := s.file.Upsert(invoiceKey(inv.CompanyID, inv.InvoiceNumber), inv); err != nil {
		return fmt.Errorf("fallback upsert invoice %s/%s: %w", inv.CompanyID, inv.InvoiceNumber, err)
	}
	return nil
}

func (s *InvoiceStore) upsertPrimary(ctx context.Context, inv core.Invoice) error {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("encode invoice items: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
			INSERT INTO invoices (company_id, invoice_number, customer_name, invoice_date,
				due_date, items, total, currency_symbol, currency_code, status, paid_at,
				document_path, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			ON CONFLICT (company_id, invoice_number) DO UPDATE SET
				customer_name = EXCLUDED.customer_name, invoice_date = EXCLUDED.invoice_date,
				due_date = EXCLUDED.due_date, items = EXCLUDED.items, total = EXCLUDED.total,
				currency_symbol = EXCLUDED.currency_symbol,
				currency_code = EXCLUDED.currency_code, status = EXCLUDED.status,
				paid_at = EXCLUDED.paid_at, document_path = EXCLUDED.document_path`,
		inv.CompanyID, inv.InvoiceNumber, inv.CustomerName, inv.InvoiceDate,
		inv.DueDate, items, inv.Total, inv.CurrencySymbol, inv.CurrencyCode,
		inv.Status, inv.PaidAt, inv.DocumentPath, inv.CreatedAt,
	)
	return err
}

func (s *InvoiceStore) Find(ctx context.Context, companyID, invoiceNumber string) (*core.Invoice, error) {
	if s.health.Reachable(ctx) {
		inv, err := scanInvoice(s.pool.QueryRow(ctx,
			"SELECT "+invoiceColumns+" FROM invoices WHERE company_id = $1 AND invoice_number = $2",
			companyID, invoiceNumber))
		if err == nil {
			return inv, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			s.log.Warn().Err(err).Msg("primary read failed")
		}
	}
	return s.file.FindOne(invoiceKey(companyID, invoiceNumber))
}

// List returns invoices created on or after since, newest first, capped at
// limit. Primary and fallback are merged by natural key with primary
// precedence.
func (s *InvoiceStore) List(ctx context.Context, companyID string, since time.Time, limit int) ([]core.Invoice, error) {
	merged := make(map[string]core.Invoice)

	fallback, err := s.file.Find(func(i core.Invoice) bool {
		return i.CompanyID == companyID && !i.CreatedAt.Before(since)
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("fallback list failed")
	}
	for _, inv := range fallback {
		merged[inv.InvoiceNumber] = inv
	}

	if s.health.Reachable(ctx) {
		rows, err := s.pool.Query(ctx,
			"SELECT "+invoiceColumns+" FROM invoices WHERE company_id = $1 AND created_at >= $2",
			companyID, since)
		if err != nil {
			s.log.Warn().Err(err).Msg("primary list failed")
		} else {
			defer rows.Close()
			for rows.Next() {
				inv, err := scanInvoice(rows)
				if err != nil {
					return nil, fmt.Errorf("scan invoice: %w", err)
				}
				merged[inv.InvoiceNumber] = *inv
			}
			if err := rows.Err(); err != nil {
				return nil, fmt.Errorf("iterate invoices: %w", err)
			}
		}
	}

	out := make([]core.Invoice, 0, len(merged))
	for _, inv := range merged {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InvoiceStore) Delete(ctx context.Context, companyID, invoiceNumber string) error {
	if s.health.Reachable(ctx) {
		_, err := s.pool.Exec(ctx,
			"DELETE FROM invoices WHERE company_id = $1 AND invoice_number = $2",
			companyID, invoiceNumber)
		if err != nil {
			s.log.Warn().Err(err).Msg("primary delete failed")
		}
	}
	if _, err := s.file.DeleteWhere(invoiceKey(companyID, invoiceNumber)); err != nil {
		return fmt.Errorf("fallback delete invoice %s/%s: %w", companyID, invoiceNumber, err)
	}
	return nil
}

func (s *InvoiceStore) DeleteByCompany(ctx context.Context, companyID string) (int, error) {
	if s.health.Reachable(ctx) {
		if _, err := s.pool.Exec(ctx, "DELETE FROM invoices WHERE company_id = $1", companyID); err != nil {
			s.log.Warn().Err(err).Msg("primary bulk delete failed")
		}
	}
	return s.file.DeleteWhere(func(i core.Invoice) bool { return i.CompanyID == companyID })
}

func (s *InvoiceStore) CountPrimary(ctx context.Context) (int, error) {
	if s.pool == nil {
		return 0, core.ErrPrimaryUnavailable
	}
	var n int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices").Scan(&n)
	return n, err
}

func (s *InvoiceStore) CountFallback() (int, error) {
	return s.file.Count(func(core.Invoice) bool { return true })
}

func (s *InvoiceStore) FallbackAll() ([]core.Invoice, error) {
	return s.file.All()
}
