package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type ExpenseInput struct {
	CompanyID   string
	Month       string // YYYY-MM
	Category    ExpenseCategory
	Amount      decimal.Decimal
	Description string
	Day         *int // 1-31, present only for daily entries
}

// ExpenseService manages the monthly production/expense ledger.
type ExpenseService struct {
	companies CompanyRepo
	expenses  ExpenseRepo
	locks     *keyedMutex
	log       zerolog.Logger
}

func NewExpenseService(companies CompanyRepo, expenses ExpenseRepo, log zerolog.Logger) *ExpenseService {
	return &ExpenseService{
		companies: companies,
		expenses:  expenses,
		locks:     newKeyedMutex(),
		log:       log.With().Str("component", "expenses").Logger(),
	}
}

func (s *ExpenseService) validate(ctx context.Context, in *ExpenseInput) (*Company, error) {
	if strings.TrimSpace(in.CompanyID) == "" {
		return nil, &ValidationError{Field: "companyId", Message: "required"}
	}
	if !monthPattern.MatchString(in.Month) {
		return nil, &ValidationError{Field: "month", Message: "must be YYYY-MM"}
	}
	if in.Category != CategoryProduction && in.Category != CategoryExpense {
		return nil, &ValidationError{Field: "category", Message: fmt.Sprintf("unknown value %q", in.Category)}
	}
	if !in.Amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Message: "must be positive"}
	}
	if in.Day != nil && (*in.Day < 1 || *in.Day > 31) {
		return nil, &ValidationError{Field: "day", Message: "must be between 1 and 31"}
	}

	company, err := s.companies.FindByID(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, &NotFoundError{Kind: "company", Key: in.CompanyID}
	}
	return company, nil
}

func (s *ExpenseService) build(company *Company, in ExpenseInput) Expense {
	symbol, code := ResolveCurrency(company)
	return Expense{
		CompanyID:      in.CompanyID,
		Month:          in.Month,
		Category:       in.Category,
		Amount:         in.Amount,
		Description:    in.Description,
		Day:            in.Day,
		CurrencySymbol: symbol,
		CurrencyCode:   code,
		CreatedAt:      time.Now(),
	}
}

// Add appends a ledger entry.
func (s *ExpenseService) Add(ctx context.Context, in ExpenseInput) (*Expense, error) {
	company, err := s.validate(ctx, &in)
	if err != nil {
		return nil, err
	}
	e := s.build(company, in)
	if err := s.expenses.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("persist expense: %w", err)
	}
	return &e, nil
}

// UpsertDaily records the tracked amount for one day of the month. Existing
// entries for (company, month, day) are deleted first so at most one entry
// per day remains; the delete-then-insert pair runs under a per-day lock so
// concurrent upserts cannot interleave into duplicates.
func (s *ExpenseService) UpsertDaily(ctx context.Context, in ExpenseInput) (*Expense, error) {
	if in.Day == nil {
		return nil, &ValidationError{Field: "day", Message: "required for daily entries"}
	}
	company, err := s.validate(ctx, &in)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(fmt.Sprintf("%s\x00%s\x00%d", in.CompanyID, in.Month, *in.Day))
	defer unlock()

	if _, err := s.expenses.DeleteDaily(ctx, in.CompanyID, in.Month, *in.Day); err != nil {
		return nil, fmt.Errorf("replace daily expense: %w", err)
	}
	e := s.build(company, in)
	if err := s.expenses.Insert(ctx, e); err != nil {
		return nil, fmt.Errorf("persist daily expense: %w", err)
	}
	return &e, nil
}

// List returns the month's entries, optionally restricted to one category.
func (s *ExpenseService) List(ctx context.Context, companyID, month string, category *ExpenseCategory) ([]Expense, error) {
	if !monthPattern.MatchString(month) {
		return nil, &ValidationError{Field: "month", Message: "must be YYYY-MM"}
	}
	return s.expenses.List(ctx, companyID, month, category)
}

// Purge deletes the month's entries, optionally restricted to one category,
// and returns how many fallback records were removed.
func (s *ExpenseService) Purge(ctx context.Context, companyID, month string, category *ExpenseCategory) (int, error) {
	if !monthPattern.MatchString(month) {
		return 0, &ValidationError{Field: "month", Message: "must be YYYY-MM"}
	}
	n, err := s.expenses.Delete(ctx, companyID, month, category)
	if err != nil {
		return 0, fmt.Errorf("purge expenses: %w", err)
	}
	s.log.Info().Str("company_id", companyID).Str("month", month).Int("removed", n).Msg("expenses purged")
	return n, nil
}
