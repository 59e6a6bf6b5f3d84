package app

import (
	"context"

	"bizbooks/internal/core"
)

// ApplicationService is the single interface all adapters (Web, CLI) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// RegisterCompany registers a company and returns it with its generated
	// identifier. Colliding name/email/phone/account-number values are
	// rejected before an identifier is consumed.
	RegisterCompany(ctx context.Context, req RegisterCompanyRequest) (*CompanyResult, error)

	// GetCompany returns one company, merged across both stores.
	GetCompany(ctx context.Context, companyID string) (*CompanyResult, error)

	// UpdateCompany applies a merge-patch to a company profile.
	UpdateCompany(ctx context.Context, companyID string, req UpdateCompanyRequest) (*CompanyResult, error)

	// CreateInvoice validates, renders and persists a new invoice.
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResult, error)

	// GetInvoice returns a single invoice by company and number.
	GetInvoice(ctx context.Context, companyID, invoiceNumber string) (*InvoiceResult, error)

	// ListInvoices returns invoices in a trailing window of months
	// (months <= 0 means the default window).
	ListInvoices(ctx context.Context, companyID string, months int) (*InvoiceListResult, error)

	// DeleteInvoice removes an invoice, its rendered file and every receipt
	// referencing it.
	DeleteInvoice(ctx context.Context, companyID, invoiceNumber string) (*core.InvoiceDeleteResult, error)

	// CreateReceipt validates, renders and persists a receipt, then resyncs
	// the referenced invoice's paid status.
	CreateReceipt(ctx context.Context, req CreateReceiptRequest) (*ReceiptResult, error)

	// GetReceipt returns a single receipt by company and number.
	GetReceipt(ctx context.Context, companyID, receiptNumber string) (*ReceiptResult, error)

	// ListReceipts returns receipts in a trailing window of months.
	ListReceipts(ctx context.Context, companyID string, months int) (*ReceiptListResult, error)

	// DeleteReceipt removes one receipt and resyncs its invoice.
	DeleteReceipt(ctx context.Context, companyID, receiptNumber string) error

	// DeleteReceiptsByInvoice removes every receipt referencing an invoice
	// and reports the invoice's resulting status.
	DeleteReceiptsByInvoice(ctx context.Context, companyID, invoiceNumber string) (*core.BulkDeleteResult, error)

	// AddExpense appends an entry to the monthly ledger.
	AddExpense(ctx context.Context, req ExpenseRequest) (*ExpenseResult, error)

	// UpsertDailyExpense replaces the tracked amount for one day of a month.
	UpsertDailyExpense(ctx context.Context, req ExpenseRequest) (*ExpenseResult, error)

	// ListExpenses returns a month's ledger, optionally one category.
	ListExpenses(ctx context.Context, companyID, month string, category *core.ExpenseCategory) (*ExpenseListResult, error)

	// PurgeExpenses deletes a month's ledger, optionally one category.
	PurgeExpenses(ctx context.Context, companyID, month string, category *core.ExpenseCategory) (*PurgeResult, error)

	// MonthlySummary returns the profit-and-loss view of one month.
	MonthlySummary(ctx context.Context, companyID, month string) (*core.MonthlySummary, error)

	// DailyRevenue returns the month's receipts bucketed by day.
	DailyRevenue(ctx context.Context, companyID, month string) (*core.DailySeries, error)

	// DailyExpenses returns the month's expenses bucketed by day.
	DailyExpenses(ctx context.Context, companyID, month string) (*core.DailySeries, error)

	// PrimaryReachable reports whether the primary store currently answers
	// health probes.
	PrimaryReachable(ctx context.Context) bool

	// AdminAuthorize checks the supplied secret against the configured one
	// in constant time; core.ErrForbidden means rejected.
	AdminAuthorize(secret string) error

	// AdminListCompanies returns every company; requires the admin secret.
	AdminListCompanies(ctx context.Context, secret string) (*CompanyListResult, error)

	// AdminDeleteCompany removes a company and everything it owns; requires
	// the admin secret.
	AdminDeleteCompany(ctx context.Context, secret, companyID string) error

	// AdminScanDuplicates reports fallback companies whose unique fields
	// collide with other records; requires the admin secret.
	AdminScanDuplicates(ctx context.Context, secret string) ([]core.DuplicateRecord, error)

	// AdminMigrate copies fallback records into the primary store and
	// returns a per-kind report; requires the admin secret.
	AdminMigrate(ctx context.Context, secret string) (*core.MigrationReport, error)

	// AdminStats returns record counts per store; requires the admin secret.
	AdminStats(ctx context.Context, secret string) (*core.StoreStats, error)
}
