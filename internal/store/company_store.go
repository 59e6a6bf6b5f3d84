package store

import (
	"context"
	"errors"
	"fmt"

	"bizbooks/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// CompanyStore is the dual-store adapter for companies: a Postgres primary
// consulted while reachable, and a JSON fallback file that is always written.
// Primary failures never fail the caller as long as the fallback write lands.
type CompanyStore struct {
	pool   *pgxpool.Pool
	health *Health
	file   *jsonFile[core.Company]
	log    zerolog.Logger
}

func NewCompanyStore(pool *pgxpool.Pool, health *Health, fallbackPath string, log zerolog.Logger) *CompanyStore {
	return &CompanyStore{
		pool:   pool,
		health: health,
		file:   newJSONFile[core.Company](fallbackPath),
		log:    log.With().Str("store", "companies").Logger(),
	}
}

const companyColumns = `id, name, address, email, phone, logo_path, signature_path,
	brand_color, country, currency_symbol, currency_code, bank_name, account_name,
	account_number, invoice_template, receipt_template, terms, business_type,
	created_at, updated_at`

func scanCompany(row pgx.Row) (*core.Company, error) {
	c := &core.Company{}
	err := row.Scan(
		&c.ID, &c.Name, &c.Address, &c.Email, &c.Phone, &c.LogoPath, &c.SignaturePath,
		&c.BrandColor, &c.Country, &c.CurrencySymbol, &c.CurrencyCode, &c.BankName,
		&c.AccountName, &c.AccountNumber, &c.InvoiceTemplate, &c.ReceiptTemplate,
		&c.Terms, &c.BusinessType, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CompanyStore) byID(id string) func(core.Company) bool {
	return func(c core.Company) bool { return c.ID == id }
}

// Upsert writes the company to the primary best-effort, then always to the
// fallback file keyed by company id.
func (s *CompanyStore) Upsert(ctx context.Context, c core.Company) error {
	if s.health.Reachable(ctx) {
		if err := s.upsertPrimary(ctx, c); err != nil {
			s.log.Warn().Err(err).Str("company_id", c.ID).Msg("primary upsert failed, fallback only")
		}
	}
	if err := s.file.Upsert(s.byID(c.ID), c); err != nil {
		return fmt.Errorf("fallback upsert company %s: %w", c.ID, err)
	}
	return nil
}

// upsertPrimary writes only to the primary store. The reconciler uses it
// directly when merging fallback records.
func (s *CompanyStore) upsertPrimary(ctx context.Context, c core.Company) error {
	_, err := s.pool.Exec(ctx, `
			INSERT INTO companies (id, name, address, email, phone, logo_path, signature_path,
				brand_color, country, currency_symbol, currency_code, bank_name, account_name,
				account_number, invoice_template, receipt_template, terms, business_type,
				created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, address = EXCLUDED.address, email = EXCLUDED.email,
				phone = EXCLUDED.phone, logo_path = EXCLUDED.logo_path,
				signature_path = EXCLUDED.signature_path, brand_color = EXCLUDED.brand_color,
				country = EXCLUDED.country, currency_symbol = EXCLUDED.currency_symbol,
				currency_code = EXCLUDED.currency_code, bank_name = EXCLUDED.bank_name,
				account_name = EXCLUDED.account_name, account_number = EXCLUDED.account_number,
				invoice_template = EXCLUDED.invoice_template,
				receipt_template = EXCLUDED.receipt_template, terms = EXCLUDED.terms,
				business_type = EXCLUDED.business_type, updated_at = EXCLUDED.updated_at`,
		c.ID, c.Name, c.Address, c.Email, c.Phone, c.LogoPath, c.SignaturePath,
		c.BrandColor, c.Country, c.CurrencySymbol, c.CurrencyCode, c.BankName,
		c.AccountName, c.AccountNumber, c.InvoiceTemplate, c.ReceiptTemplate,
		c.Terms, c.BusinessType, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// FindByID reads the primary first, falls back on failure or empty result,
// and shallow-merges the two records with primary fields taking precedence.
func (s *CompanyStore) FindByID(ctx context.Context, id string) (*core.Company, error) {
	var primary *core.Company
	if s.health.Reachable(ctx) {
		c, err := scanCompany(s.pool.QueryRow(ctx,
			"SELECT "+companyColumns+" FROM companies WHERE id = $1", id))
		switch {
		case err == nil:
			primary = c
		case errors.Is(err, pgx.ErrNoRows):
			// fall through to the fallback file
		default:
			s.log.Warn().Err(err).Str("company_id", id).Msg("primary read failed")
		}
	}

	fallback, err := s.file.FindOne(s.byID(id))
	if err != nil {
		if primary != nil {
			s.log.Warn().Err(err).Msg("fallback read failed")
			return primary, nil
		}
		return nil, err
	}
	return mergeCompany(primary, fallback), nil
}

// List returns the union of both stores keyed by company id, primary records
// taking precedence on collision.
func (s *CompanyStore) List(ctx context.Context) ([]core.Company, error) {
	byID := make(map[string]*core.Company)
	var order []string

	fallback, err := s.file.All()
	if err != nil {
		s.log.Warn().Err(err).Msg("fallback list failed")
	}
	for i := range fallback {
		byID[fallback[i].ID] = &fallback[i]
		order = append(order, fallback[i].ID)
	}

	if s.health.Reachable(ctx) {
		rows, err := s.pool.Query(ctx, "SELECT "+companyColumns+" FROM companies ORDER BY created_at")
		if err != nil {
			s.log.Warn().Err(err).Msg("primary list failed")
		} else {
			defer rows.Close()
			for rows.Next() {
				c, err := scanCompany(rows)
				if err != nil {
					return nil, fmt.Errorf("scan company: %w", err)
				}
				if existing, ok := byID[c.ID]; ok {
					byID[c.ID] = mergeCompany(c, existing)
				} else {
					byID[c.ID] = c
					order = append(order, c.ID)
				}
			}
			if err := rows.Err(); err != nil {
				return nil, fmt.Errorf("iterate companies: %w", err)
			}
		}
	}

	out := make([]core.Company, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

// Delete removes the company from both stores. The primary delete is
// best-effort; the fallback delete must succeed.
func (s *CompanyStore) Delete(ctx context.Context, id string) error {
	if s.health.Reachable(ctx) {
		if _, err := s.pool.Exec(ctx, "DELETE FROM companies WHERE id = $1", id); err != nil {
			s.log.Warn().Err(err).Str("company_id", id).Msg("primary delete failed")
		}
	}
	if _, err := s.file.DeleteWhere(s.byID(id)); err != nil {
		return fmt.Errorf("fallback delete company %s: %w", id, err)
	}
	return nil
}

// IDExists checks both stores for the identifier. The primary is consulted
// only while reachable; a primary error counts as "unknown" and only the
// fallback verdict is used.
func (s *CompanyStore) IDExists(ctx context.Context, id string) (bool, error) {
	if s.health.Reachable(ctx) {
		var n int
		err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM companies WHERE id = $1", id).Scan(&n)
		if err != nil {
			s.log.Warn().Err(err).Msg("primary id check failed")
		} else if n > 0 {
			return true, nil
		}
	}
	n, err := s.file.Count(s.byID(id))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindMatchingUnique returns companies matching any candidate unique field,
// excluding excludeID. One OR-query against the primary while reachable,
// otherwise a full scan of the fallback list.
func (s *CompanyStore) FindMatchingUnique(ctx context.Context, cand core.UniqueFields, excludeID string) ([]core.Company, error) {
	if s.health.Reachable(ctx) {
		rows, err := s.pool.Query(ctx, `
			SELECT `+companyColumns+`
			FROM companies
			WHERE (name = $1 OR email = $2 OR phone = $3 OR account_number = $4)
			  AND id <> $5`,
			nullIfEmpty(cand.Name), nullIfEmpty(cand.Email), nullIfEmpty(cand.Phone),
			nullIfEmpty(cand.AccountNumber), excludeID,
		)
		if err != nil {
			s.log.Warn().Err(err).Msg("primary unique-field query failed, scanning fallback")
		} else {
			defer rows.Close()
			var out []core.Company
			for rows.Next() {
				c, err := scanCompany(rows)
				if err != nil {
					return nil, fmt.Errorf("scan company: %w", err)
				}
				out = append(out, *c)
			}
			if err := rows.Err(); err != nil {
				return nil, fmt.Errorf("iterate companies: %w", err)
			}
			return out, nil
		}
	}

	return s.file.Find(func(c core.Company) bool {
		if c.ID == excludeID {
			return false
		}
		if cand.Name != "" && c.Name == cand.Name {
			return true
		}
		if cand.Email != "" && strPtrEquals(c.Email, cand.Email) {
			return true
		}
		if cand.Phone != "" && strPtrEquals(c.Phone, cand.Phone) {
			return true
		}
		if cand.AccountNumber != "" && strPtrEquals(c.AccountNumber, cand.AccountNumber) {
			return true
		}
		return false
	})
}

// CountPrimary and CountFallback feed the admin stats view.
func (s *CompanyStore) CountPrimary(ctx context.Context) (int, error) {
	if s.pool == nil {
		return 0, core.ErrPrimaryUnavailable
	}
	var n int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM companies").Scan(&n)
	return n, err
}

func (s *CompanyStore) CountFallback() (int, error) {
	return s.file.Count(func(core.Company) bool { return true })
}

// FallbackAll exposes the raw fallback list to the reconciler.
func (s *CompanyStore) FallbackAll() ([]core.Company, error) {
	return s.file.All()
}

// mergeCompany overrides fallback fields with primary fields field-by-field.
// The primary is considered more current once reachable, but optional fields
// it never learned about are filled from the fallback record.
func mergeCompany(primary, fallback *core.Company) *core.Company {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	merged := *primary
	if merged.Name == "" {
		merged.Name = fallback.Name
	}
	if merged.BusinessType == "" {
		merged.BusinessType = fallback.BusinessType
	}
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = fallback.CreatedAt
	}
	fillStr(&merged.Address, fallback.Address)
	fillStr(&merged.Email, fallback.Email)
	fillStr(&merged.Phone, fallback.Phone)
	fillStr(&merged.LogoPath, fallback.LogoPath)
	fillStr(&merged.SignaturePath, fallback.SignaturePath)
	fillStr(&merged.BrandColor, fallback.BrandColor)
	fillStr(&merged.Country, fallback.Country)
	fillStr(&merged.CurrencySymbol, fallback.CurrencySymbol)
	fillStr(&merged.CurrencyCode, fallback.CurrencyCode)
	fillStr(&merged.BankName, fallback.BankName)
	fillStr(&merged.AccountName, fallback.AccountName)
	fillStr(&merged.AccountNumber, fallback.AccountNumber)
	fillStr(&merged.InvoiceTemplate, fallback.InvoiceTemplate)
	fillStr(&merged.ReceiptTemplate, fallback.ReceiptTemplate)
	fillStr(&merged.Terms, fallback.Terms)
	return &merged
}

func fillStr(dst **string, src *string) {
	if *dst == nil {
		*dst = src
	}
}

func strPtrEquals(p *string, v string) bool {
	return p != nil && *p == v
}

// nullIfEmpty keeps empty candidate strings from matching NULL-free empty
// columns in the OR-query.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
