package core_test

import (
	"context"
	"errors"
	"testing"

	"bizbooks/internal/core"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newExpenseFixture(t *testing.T) (*core.ExpenseService, string) {
	t.Helper()
	companies := newMemCompanyRepo()
	companies.companies["ACM/GM-000001"] = core.Company{ID: "ACM/GM-000001", Name: "Acme"}
	return core.NewExpenseService(companies, &memExpenseRepo{}, zerolog.Nop()), "ACM/GM-000001"
}

func intptr(n int) *int { return &n }

func TestExpenseService_Add(t *testing.T) {
	ctx := context.Background()
	svc, companyID := newExpenseFixture(t)

	t.Run("valid entry persists", func(t *testing.T) {
		e, err := svc.Add(ctx, core.ExpenseInput{
			CompanyID: companyID, Month: "2026-08",
			Category: core.CategoryProduction, Amount: decimal.NewFromInt(500),
		})
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		if e.CurrencySymbol == "" || e.CurrencyCode == "" {
			t.Error("currency not resolved")
		}
	})

	invalid := []struct {
		name  string
		in    core.ExpenseInput
		field string
	}{
		{"bad month", core.ExpenseInput{CompanyID: companyID, Month: "2026-13", Category: core.CategoryExpense, Amount: decimal.NewFromInt(1)}, "month"},
		{"month without zero pad", core.ExpenseInput{CompanyID: companyID, Month: "2026-8", Category: core.CategoryExpense, Amount: decimal.NewFromInt(1)}, "month"},
		{"unknown category", core.ExpenseInput{CompanyID: companyID, Month: "2026-08", Category: "misc", Amount: decimal.NewFromInt(1)}, "category"},
		{"zero amount", core.ExpenseInput{CompanyID: companyID, Month: "2026-08", Category: core.CategoryExpense, Amount: decimal.Zero}, "amount"},
		{"negative amount", core.ExpenseInput{CompanyID: companyID, Month: "2026-08", Category: core.CategoryExpense, Amount: decimal.NewFromInt(-5)}, "amount"},
		{"day out of range", core.ExpenseInput{CompanyID: companyID, Month: "2026-08", Category: core.CategoryExpense, Amount: decimal.NewFromInt(5), Day: intptr(32)}, "day"},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Add(ctx, tc.in)
			var v *core.ValidationError
			if !errors.As(err, &v) || v.Field != tc.field {
				t.Fatalf("want %s validation error, got %v", tc.field, err)
			}
		})
	}

	t.Run("unknown company is not found", func(t *testing.T) {
		_, err := svc.Add(ctx, core.ExpenseInput{
			CompanyID: "XXX/GM-000000", Month: "2026-08",
			Category: core.CategoryExpense, Amount: decimal.NewFromInt(1),
		})
		var nf *core.NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("want NotFoundError, got %v", err)
		}
	})
}

func TestExpenseService_UpsertDailyReplaces(t *testing.T) {
	ctx := context.Background()
	svc, companyID := newExpenseFixture(t)

	in := core.ExpenseInput{
		CompanyID: companyID, Month: "2026-08",
		Category: core.CategoryExpense, Amount: decimal.NewFromInt(50), Day: intptr(12),
	}
	if _, err := svc.UpsertDaily(ctx, in); err != nil {
		t.Fatal(err)
	}
	in.Amount = decimal.NewFromInt(75)
	if _, err := svc.UpsertDaily(ctx, in); err != nil {
		t.Fatal(err)
	}

	entries, err := svc.List(ctx, companyID, "2026-08", nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want exactly 1 after replacement", len(entries))
	}
	if !entries[0].Amount.Equal(decimal.NewFromInt(75)) {
		t.Errorf("amount = %s, want the replacement 75", entries[0].Amount)
	}

	t.Run("day is required", func(t *testing.T) {
		_, err := svc.UpsertDaily(ctx, core.ExpenseInput{
			CompanyID: companyID, Month: "2026-08",
			Category: core.CategoryExpense, Amount: decimal.NewFromInt(5),
		})
		var v *core.ValidationError
		if !errors.As(err, &v) || v.Field != "day" {
			t.Fatalf("want day validation error, got %v", err)
		}
	})
}

func TestExpenseService_ListAndPurgeByCategory(t *testing.T) {
	ctx := context.Background()
	svc, companyID := newExpenseFixture(t)

	seed := []core.ExpenseInput{
		{CompanyID: companyID, Month: "2026-08", Category: core.CategoryProduction, Amount: decimal.NewFromInt(100)},
		{CompanyID: companyID, Month: "2026-08", Category: core.CategoryExpense, Amount: decimal.NewFromInt(20)},
		{CompanyID: companyID, Month: "2026-08", Category: core.CategoryExpense, Amount: decimal.NewFromInt(30)},
	}
	for _, in := range seed {
		if _, err := svc.Add(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	running := core.CategoryExpense
	got, err := svc.List(ctx, companyID, "2026-08", &running)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("filtered list = %d entries, want 2", len(got))
	}

	n, err := svc.Purge(ctx, companyID, "2026-08", &running)
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if n != 2 {
		t.Errorf("purged = %d, want 2", n)
	}
	rest, _ := svc.List(ctx, companyID, "2026-08", nil)
	if len(rest) != 1 || rest[0].Category != core.CategoryProduction {
		t.Errorf("remaining entries = %v, want only the production entry", rest)
	}
}
