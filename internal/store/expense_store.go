package store

import (
	"context"
	"fmt"
	"sort"

	"bizbooks/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ExpenseStore is the dual-store adapter for monthly ledger entries. Unlike
// the other entity types, expenses without a day-of-month have no unique
// natural key, so Insert appends rather than upserts.
type ExpenseStore struct {
	pool   *pgxpool.Pool
	health *Health
	file   *jsonFile[core.Expense]
	log    zerolog.Logger
}

func NewExpenseStore(pool *pgxpool.Pool, health *Health, fallbackPath string, log zerolog.Logger) *ExpenseStore {
	return &ExpenseStore{
		pool:   pool,
		health: health,
		file:   newJSONFile[core.Expense](fallbackPath),
		log:    log.With().Str("store", "expenses").Logger(),
	}
}

const expenseColumns = `company_id, month, category, amount, description, day,
	currency_symbol, currency_code, created_at`

func scanExpense(row pgx.Row) (*core.Expense, error) {
	e := &core.Expense{}
	err := row.Scan(
		&e.CompanyID, &e.Month, &e.Category, &e.Amount, &e.Description, &e.Day,
		&e.CurrencySymbol, &e.CurrencyCode, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *ExpenseStore) Insert(ctx context.Context, e core.Expense) error {
	if s.health.Reachable(ctx) {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO expenses (company_id, month, category, amount, description, day,
				currency_symbol, currency_code, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			e.CompanyID, e.Month, e.Category, e.Amount, e.Description, e.Day,
			e.CurrencySymbol, e.CurrencyCode, e.CreatedAt,
		)
		if err != nil {
			s.log.Warn().Err(err).
				Str("company_id", e.CompanyID).
				Str("month", e.Month).
				Msg("primary insert failed, fallback only")
		}
	}
	if err := s.file.Append(e); err != nil {
		return fmt.Errorf("fallback insert expense %s/%s: %w", e.CompanyID, e.Month, err)
	}
	return nil
}

// List returns expenses for the month, optionally restricted to a category,
// merged across both stores. Fallback entries that duplicate a primary row
// (same company, month, day, category, amount) are collapsed.
func (s *ExpenseStore) List(ctx context.Context, companyID, month string, category *core.ExpenseCategory) ([]core.Expense, error) {
	match := func(e core.Expense) bool {
		if e.CompanyID != companyID || e.Month != month {
			return false
		}
		return category == nil || e.Category == *category
	}

	var out []core.Expense
	seen := make(map[string]bool)
	key := func(e core.Expense) string {
		day := -1
		if e.Day != nil {
			day = *e.Day
		}
		return fmt.Sprintf("%s|%s|%d|%s|%s", e.Month, e.Category, day, e.Amount.String(), e.Description)
	}

	if s.health.Reachable(ctx) {
		q := "SELECT " + expenseColumns + " FROM expenses WHERE company_id = $1 AND month = $2"
		args := []any{companyID, month}
		if category != nil {
			args = append(args, *category)
			q += " AND category = $3"
		}
		rows, err := s.pool.Query(ctx, q, args...)
		if err != nil {
			s.log.Warn().Err(err).Msg("primary list failed")
		} else {
			defer rows.Close()
			for rows.Next() {
				e, err := scanExpense(rows)
				if err != nil {
					return nil, fmt.Errorf("scan expense: %w", err)
				}
				out = append(out, *e)
				seen[key(*e)] = true
			}
			if err := rows.Err(); err != nil {
				return nil, fmt.Errorf("iterate expenses: %w", err)
			}
		}
	}

	fallback, err := s.file.Find(match)
	if err != nil {
		if out == nil {
			return nil, err
		}
		s.log.Warn().Err(err).Msg("fallback list failed")
	}
	for _, e := range fallback {
		if !seen[key(e)] {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *ExpenseStore) DeleteDaily(ctx context.Context, companyID, month string, day int) (int, error) {
	if s.health.Reachable(ctx) {
		_, err := s.pool.Exec(ctx,
			"DELETE FROM expenses WHERE company_id = $1 AND month = $2 AND day = $3",
			companyID, month, day)
		if err != nil {
			s.log.Warn().Err(err).Msg("primary daily delete failed")
		}
	}
	return s.file.DeleteWhere(func(e core.Expense) bool {
		return e.CompanyID == companyID && e.Month == month && e.Day != nil && *e.Day == day
	})
}

func (s *ExpenseStore) Delete(ctx context.Context, companyID, month string, category *core.ExpenseCategory) (int, error) {
	if s.health.Reachable(ctx) {
		q := "DELETE FROM expenses WHERE company_id = $1 AND month = $2"
		args := []any{companyID, month}
		if category != nil {
			args = append(args, *category)
			q += " AND category = $3"
		}
		if _, err := s.pool.Exec(ctx, q, args...); err != nil {
			s.log.Warn().Err(err).Msg("primary delete failed")
		}
	}
	return s.file.DeleteWhere(func(e core.Expense) bool {
		if e.CompanyID != companyID || e.Month != month {
			return false
		}
		return category == nil || e.Category == *category
	})
}

func (s *ExpenseStore) DeleteByCompany(ctx context.Context, companyID string) (int, error) {
	if s.health.Reachable(ctx) {
		if _, err := s.pool.Exec(ctx, "DELETE FROM expenses WHERE company_id = $1", companyID); err != nil {
			s.log.Warn().Err(err).Msg("primary bulk delete failed")
		}
	}
	return s.file.DeleteWhere(func(e core.Expense) bool { return e.CompanyID == companyID })
}

func (s *ExpenseStore) CountPrimary(ctx context.Context) (int, error) {
	if s.pool == nil {
		return 0, core.ErrPrimaryUnavailable
	}
	var n int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM expenses").Scan(&n)
	return n, err
}

func (s *ExpenseStore) CountFallback() (int, error) {
	return s.file.Count(func(core.Expense) bool { return true })
}

func (s *ExpenseStore) FallbackAll() ([]core.Expense, error) {
	return s.file.All()
}
