package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"bizbooks/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ReceiptStore is the dual-store adapter for receipts.
type ReceiptStore struct {
	pool   *pgxpool.Pool
	health *Health
	file   *jsonFile[core.Receipt]
	log    zerolog.Logger
}

func NewReceiptStore(pool *pgxpool.Pool, health *Health, fallbackPath string, log zerolog.Logger) *ReceiptStore {
	return &ReceiptStore{
		pool:   pool,
		health: health,
		file:   newJSONFile[core.Receipt](fallbackPath),
		log:    log.With().Str("store", "receipts").Logger(),
	}
}

func receiptKey(companyID, receiptNumber string) func(core.Receipt) bool {
	return func(r core.Receipt) bool {
		return r.CompanyID == companyID && r.ReceiptNumber == receiptNumber
	}
}

func receiptInvoiceKey(companyID, invoiceNumber string) func(core.Receipt) bool {
	return func(r core.Receipt) bool {
		return r.CompanyID == companyID && r.InvoiceNumber != nil && *r.InvoiceNumber == invoiceNumber
	}
}

const receiptColumns = `company_id, receipt_number, invoice_number, customer_name,
	receipt_date, amount_paid, currency_symbol, currency_code, document_path, created_at`

func scanReceipt(row pgx.Row) (*core.Receipt, error) {
	r := &core.Receipt{}
	err := row.Scan(
		&r.CompanyID, &r.ReceiptNumber, &r.InvoiceNumber, &r.CustomerName,
		&r.ReceiptDate, &r.AmountPaid, &r.CurrencySymbol, &r.CurrencyCode,
		&r.DocumentPath, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReceiptStore) Upsert(ctx context.Context, r core.Receipt) error {
	if s.health.Reachable(ctx) {
		if err := s.upsertPrimary(ctx, r); err != nil {
			s.log.Warn().Err(err).
				Str("company_id", r.CompanyID).
				Str("receipt_number", r.ReceiptNumber).
				Msg("primary upsert failed, fallback only")
		}
	}
	if err := s.file.Upsert(receiptKey(r.CompanyID, r.ReceiptNumber), r); err != nil {
		return fmt.Errorf("fallback upsert receipt %s/%s: %w", r.CompanyID, r.ReceiptNumber, err)
	}
	return nil
}

func (s *ReceiptStore) upsertPrimary(ctx context.Context, r core.Receipt) error {
	_, err := s.pool.Exec(ctx, `
			INSERT INTO receipts (company_id, receipt_number, invoice_number, customer_name,
				receipt_date, amount_paid, currency_symbol, currency_code, document_path, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (company_id, receipt_number) DO UPDATE SET
				invoice_number = EXCLUDED.invoice_number,
				customer_name = EXCLUDED.customer_name,
				receipt_date = EXCLUDED.receipt_date, amount_paid = EXCLUDED.amount_paid,
				currency_symbol = EXCLUDED.currency_symbol,
				currency_code = EXCLUDED.currency_code,
				document_path = EXCLUDED.document_path`,
		r.CompanyID, r.ReceiptNumber, r.InvoiceNumber, r.CustomerName,
		r.ReceiptDate, r.AmountPaid, r.CurrencySymbol, r.CurrencyCode,
		r.DocumentPath, r.CreatedAt,
	)
	return err
}

func (s *ReceiptStore) Find(ctx context.Context, companyID, receiptNumber string) (*core.Receipt, error) {
	if s.health.Reachable(ctx) {
		r, err := scanReceipt(s.pool.QueryRow(ctx,
			"SELECT "+receiptColumns+" FROM receipts WHERE company_id = $1 AND receipt_number = $2",
			companyID, receiptNumber))
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			s.log.Warn().Err(err).Msg("primary read failed")
		}
	}
	return s.file.FindOne(receiptKey(companyID, receiptNumber))
}

// List returns receipts created on or after since, newest first, capped at
// limit, merged by natural key with primary precedence.
func (s *ReceiptStore) List(ctx context.Context, companyID string, since time.Time, limit int) ([]core.Receipt, error) {
	merged := make(map[string]core.Receipt)

	fallback, err := s.file.Find(func(r core.Receipt) bool {
		return r.CompanyID == companyID && !r.CreatedAt.Before(since)
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("fallback list failed")
	}
	for _, r := range fallback {
		merged[r.ReceiptNumber] = r
	}

	if s.health.Reachable(ctx) {
		rows, err := s.pool.Query(ctx,
			"SELECT "+receiptColumns+" FROM receipts WHERE company_id = $1 AND created_at >= $2",
			companyID, since)
		if err != nil {
			s.log.Warn().Err(err).Msg("primary list failed")
		} else {
			defer rows.Close()
			for rows.Next() {
				r, err := scanReceipt(rows)
				if err != nil {
					return nil, fmt.Errorf("scan receipt: %w", err)
				}
				merged[r.ReceiptNumber] = *r
			}
			if err := rows.Err(); err != nil {
				return nil, fmt.Errorf("iterate receipts: %w", err)
			}
		}
	}

	out := make([]core.Receipt, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindByInvoice returns every receipt referencing the invoice, merged across
// both stores by receipt number.
func (s *ReceiptStore) FindByInvoice(ctx context.Context, companyID, invoiceNumber string) ([]core.Receipt, error) {
	merged := make(map[string]core.Receipt)

	fallback, err := s.file.Find(receiptInvoiceKey(companyID, invoiceNumber))
	if err != nil {
		s.log.Warn().Err(err).Msg("fallback query failed")
	}
	for _, r := range fallback {
		merged[r.ReceiptNumber] = r
	}

	if s.health.Reachable(ctx) {
		rows, err := s.pool.Query(ctx,
			"SELECT "+receiptColumns+" FROM receipts WHERE company_id = $1 AND invoice_number = $2",
			companyID, invoiceNumber)
		if err != nil {
			s.log.Warn().Err(err).Msg("primary query failed")
		} else {
			defer rows.Close()
			for rows.Next() {
				r, err := scanReceipt(rows)
				if err != nil {
					return nil, fmt.Errorf("scan receipt: %w", err)
				}
				merged[r.ReceiptNumber] = *r
			}
			if err := rows.Err(); err != nil {
				return nil, fmt.Errorf("iterate receipts: %w", err)
			}
		}
	}

	out := make([]core.Receipt, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceiptNumber < out[j].ReceiptNumber })
	return out, nil
}

// CountByInvoice counts receipts still referencing the invoice. This drives
// the paid/unpaid status recomputation, so it counts the merged union of
// both stores.
func (s *ReceiptStore) CountByInvoice(ctx context.Context, companyID, invoiceNumber string) (int, error) {
	receipts, err := s.FindByInvoice(ctx, companyID, invoiceNumber)
	if err != nil {
		return 0, err
	}
	return len(receipts), nil
}

func (s *ReceiptStore) Delete(ctx context.Context, companyID, receiptNumber string) error {
	if s.health.Reachable(ctx) {
		_, err := s.pool.Exec(ctx,
			"DELETE FROM receipts WHERE company_id = $1 AND receipt_number = $2",
			companyID, receiptNumber)
		if err != nil {
			s.log.Warn().Err(err).Msg("primary delete failed")
		}
	}
	if _, err := s.file.DeleteWhere(receiptKey(companyID, receiptNumber)); err != nil {
		return fmt.Errorf("fallback delete receipt %s/%s: %w", companyID, receiptNumber, err)
	}
	return nil
}

// DeleteByInvoice removes every receipt referencing the invoice from both
// stores and returns the number removed from the fallback union.
func (s *ReceiptStore) DeleteByInvoice(ctx context.Context, companyID, invoiceNumber string) (int, error) {
	if s.health.Reachable(ctx) {
		_, err := s.pool.Exec(ctx,
			"DELETE FROM receipts WHERE company_id = $1 AND invoice_number = $2",
			companyID, invoiceNumber)
		if err != nil {
			s.log.Warn().Err(err).Msg("primary bulk delete failed")
		}
	}
	return s.file.DeleteWhere(receiptInvoiceKey(companyID, invoiceNumber))
}

func (s *ReceiptStore) DeleteByCompany(ctx context.Context, companyID string) (int, error) {
	if s.health.Reachable(ctx) {
		if _, err := s.pool.Exec(ctx, "DELETE FROM receipts WHERE company_id = $1", companyID); err != nil {
			s.log.Warn().Err(err).Msg("primary bulk delete failed")
		}
	}
	return s.file.DeleteWhere(func(r core.Receipt) bool { return r.CompanyID == companyID })
}

func (s *ReceiptStore) CountPrimary(ctx context.Context) (int, error) {
	if s.pool == nil {
		return 0, core.ErrPrimaryUnavailable
	}
	var n int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM receipts").Scan(&n)
	return n, err
}

func (s *ReceiptStore) CountFallback() (int, error) {
	return s.file.Count(func(core.Receipt) bool { return true })
}

func (s *ReceiptStore) FallbackAll() ([]core.Receipt, error) {
	return s.file.All()
}
