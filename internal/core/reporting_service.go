package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// MonthlySummary is the profit-and-loss view of one calendar month. All
// amounts are plain decimal sums in the company's single currency.
type MonthlySummary struct {
	CompanyID       string          `json:"company_id"`
	Month           string          `json:"month"`
	CurrencySymbol  string          `json:"currency_symbol"`
	CurrencyCode    string          `json:"currency_code"`
	Revenue         decimal.Decimal `json:"revenue"`
	ProductionCost  decimal.Decimal `json:"production_cost"`
	RunningExpenses decimal.Decimal `json:"running_expenses"`
	TotalExpenses   decimal.Decimal `json:"total_expenses"`
	Net             decimal.Decimal `json:"net"`
}

// DailySeries is a fixed 31-slot daily breakdown; index 0 is day 1. Days
// beyond the month's actual length stay zero.
type DailySeries struct {
	CompanyID      string            `json:"company_id"`
	Month          string            `json:"month"`
	CurrencySymbol string            `json:"currency_symbol"`
	CurrencyCode   string            `json:"currency_code"`
	Days           []decimal.Decimal `json:"days"`
	Total          decimal.Decimal   `json:"total"`
}

// ── Service ───────────────────────────────────────────────────────────────────

// ReportingService computes time-bucketed financial aggregates. It reads only
// the primary store's receipt and expense collections: records stranded in
// the fallback are excluded until a migration merges them (documented
// limitation). A fallback-only deployment has no pool at all, so every report
// fails fast with ErrPrimaryUnavailable.
type ReportingService struct {
	pool      *pgxpool.Pool
	companies CompanyRepo
}

func NewReportingService(pool *pgxpool.Pool, companies CompanyRepo) *ReportingService {
	return &ReportingService{pool: pool, companies: companies}
}

// monthBounds returns the [start, end) timestamps of a YYYY-MM month.
func monthBounds(month string) (time.Time, time.Time, error) {
	if !monthPattern.MatchString(month) {
		return time.Time{}, time.Time{}, &ValidationError{Field: "month", Message: "must be YYYY-MM"}
	}
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{Field: "month", Message: err.Error()}
	}
	return start, start.AddDate(0, 1, 0), nil
}

func (s *ReportingService) resolveCompany(ctx context.Context, companyID string) (string, string, error) {
	c, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return "", "", err
	}
	if c == nil {
		return "", "", &NotFoundError{Kind: "company", Key: companyID}
	}
	symbol, code := ResolveCurrency(c)
	return symbol, code, nil
}

// MonthlySummary sums receipt revenue for the calendar month (receipt date,
// or creation date when absent) and partitions the month's expenses into
// production cost and running expenses. Net = revenue − total expenses.
func (s *ReportingService) MonthlySummary(ctx context.Context, companyID, month string) (*MonthlySummary, error) {
	if s.pool == nil {
		return nil, ErrPrimaryUnavailable
	}
	symbol, code, err := s.resolveCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	start, end, err := monthBounds(month)
	if err != nil {
		return nil, err
	}

	sum := &MonthlySummary{
		CompanyID:      companyID,
		Month:          month,
		CurrencySymbol: symbol,
		CurrencyCode:   code,
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_paid), 0)
		FROM receipts
		WHERE company_id = $1
		  AND COALESCE(receipt_date, created_at) >= $2
		  AND COALESCE(receipt_date, created_at) < $3`,
		companyID, start, end,
	).Scan(&sum.Revenue)
	if err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT category, COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE company_id = $1 AND month = $2
		GROUP BY category`,
		companyID, month,
	)
	if err != nil {
		return nil, fmt.Errorf("sum expenses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var category ExpenseCategory
		var total decimal.Decimal
		if err := rows.Scan(&category, &total); err != nil {
			return nil, fmt.Errorf("scan expense total: %w", err)
		}
		switch category {
		case CategoryProduction:
			sum.ProductionCost = total
		case CategoryExpense:
			sum.RunningExpenses = total
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense totals: %w", err)
	}

	sum.TotalExpenses = sum.ProductionCost.Add(sum.RunningExpenses)
	sum.Net = sum.Revenue.Sub(sum.TotalExpenses)
	return sum, nil
}

// DailyRevenue buckets each receipt of the month into its day-of-month slot.
func (s *ReportingService) DailyRevenue(ctx context.Context, companyID, month string) (*DailySeries, error) {
	if s.pool == nil {
		return nil, ErrPrimaryUnavailable
	}
	symbol, code, err := s.resolveCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	start, end, err := monthBounds(month)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT EXTRACT(DAY FROM COALESCE(receipt_date, created_at))::int, SUM(amount_paid)
		FROM receipts
		WHERE company_id = $1
		  AND COALESCE(receipt_date, created_at) >= $2
		  AND COALESCE(receipt_date, created_at) < $3
		GROUP BY 1`,
		companyID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("query daily revenue: %w", err)
	}
	defer rows.Close()
	return buildDailySeries(rows, companyID, month, symbol, code)
}

// DailyExpenses buckets each expense of the month into its day slot, using
// the explicit day field when present and the creation timestamp otherwise.
func (s *ReportingService) DailyExpenses(ctx context.Context, companyID, month string) (*DailySeries, error) {
	if s.pool == nil {
		return nil, ErrPrimaryUnavailable
	}
	symbol, code, err := s.resolveCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if _, _, err := monthBounds(month); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(day, EXTRACT(DAY FROM created_at)::int), SUM(amount)
		FROM expenses
		WHERE company_id = $1 AND month = $2
		GROUP BY 1`,
		companyID, month,
	)
	if err != nil {
		return nil, fmt.Errorf("query daily expenses: %w", err)
	}
	defer rows.Close()
	return buildDailySeries(rows, companyID, month, symbol, code)
}

type dayRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func buildDailySeries(rows dayRows, companyID, month, symbol, code string) (*DailySeries, error) {
	series := &DailySeries{
		CompanyID:      companyID,
		Month:          month,
		CurrencySymbol: symbol,
		CurrencyCode:   code,
		Days:           make([]decimal.Decimal, 31),
	}
	for rows.Next() {
		var day int
		var total decimal.Decimal
		if err := rows.Scan(&day, &total); err != nil {
			return nil, fmt.Errorf("scan day bucket: %w", err)
		}
		if day < 1 || day > 31 {
			continue
		}
		series.Days[day-1] = series.Days[day-1].Add(total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate day buckets: %w", err)
	}
	for _, d := range series.Days {
		series.Total = series.Total.Add(d)
	}
	return series, nil
}
