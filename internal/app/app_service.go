package app

import (
	"context"
	"time"

	"bizbooks/internal/core"
	"bizbooks/internal/store"
)

type appService struct {
	companies *core.CompanyService
	invoices  *core.InvoiceService
	receipts  *core.ReceiptService
	expenses  *core.ExpenseService
	reports   *core.ReportingService
	admin     *core.AdminService
	health    *store.Health
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	companies *core.CompanyService,
	invoices *core.InvoiceService,
	receipts *core.ReceiptService,
	expenses *core.ExpenseService,
	reports *core.ReportingService,
	admin *core.AdminService,
	health *store.Health,
) ApplicationService {
	return &appService{
		companies: companies,
		invoices:  invoices,
		receipts:  receipts,
		expenses:  expenses,
		reports:   reports,
		admin:     admin,
		health:    health,
	}
}

// RegisterCompany registers a company with a generated identifier.
func (s *appService) RegisterCompany(ctx context.Context, req RegisterCompanyRequest) (*CompanyResult, error) {
	c, err := s.companies.Register(ctx, core.RegisterCompanyInput{
		Name:            req.Name,
		Address:         req.Address,
		Email:           req.Email,
		Phone:           req.Phone,
		LogoPath:        req.LogoPath,
		SignaturePath:   req.SignaturePath,
		BrandColor:      req.BrandColor,
		Country:         req.Country,
		CurrencySymbol:  req.CurrencySymbol,
		CurrencyCode:    req.CurrencyCode,
		BankName:        req.BankName,
		AccountName:     req.AccountName,
		AccountNumber:   req.AccountNumber,
		InvoiceTemplate: req.InvoiceTemplate,
		ReceiptTemplate: req.ReceiptTemplate,
		Terms:           req.Terms,
		BusinessType:    core.BusinessType(req.BusinessType),
	})
	if err != nil {
		return nil, err
	}
	return &CompanyResult{Company: c}, nil
}

// GetCompany returns the merged company record.
func (s *appService) GetCompany(ctx context.Context, companyID string) (*CompanyResult, error) {
	c, err := s.companies.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return &CompanyResult{Company: c}, nil
}

// UpdateCompany applies a merge-patch to the company profile.
func (s *appService) UpdateCompany(ctx context.Context, companyID string, req UpdateCompanyRequest) (*CompanyResult, error) {
	patch := core.CompanyPatch{
		Name:            req.Name,
		Address:         req.Address,
		Email:           req.Email,
		Phone:           req.Phone,
		LogoPath:        req.LogoPath,
		SignaturePath:   req.SignaturePath,
		BrandColor:      req.BrandColor,
		Country:         req.Country,
		CurrencySymbol:  req.CurrencySymbol,
		CurrencyCode:    req.CurrencyCode,
		BankName:        req.BankName,
		AccountName:     req.AccountName,
		AccountNumber:   req.AccountNumber,
		InvoiceTemplate: req.InvoiceTemplate,
		ReceiptTemplate: req.ReceiptTemplate,
		Terms:           req.Terms,
	}
	if req.BusinessType != nil {
		bt := core.BusinessType(*req.BusinessType)
		patch.BusinessType = &bt
	}
	c, err := s.companies.UpdateProfile(ctx, companyID, patch)
	if err != nil {
		return nil, err
	}
	return &CompanyResult{Company: c}, nil
}

// CreateInvoice validates, renders and persists a new invoice.
func (s *appService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResult, error) {
	items := make([]core.LineItemInput, len(req.Items))
	for i, li := range req.Items {
		items[i] = core.LineItemInput{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
		}
	}

	invoiceDate, err := parseDate("invoiceDate", req.InvoiceDate)
	if err != nil {
		return nil, err
	}
	var dueDate *time.Time
	if req.DueDate != "" {
		d, err := parseDate("dueDate", req.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = &d
	}

	inv, err := s.invoices.Create(ctx, core.InvoiceInput{
		CompanyID:     req.CompanyID,
		InvoiceNumber: req.InvoiceNumber,
		CustomerName:  req.CustomerName,
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		Items:         items,
	})
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: inv}, nil
}

// GetInvoice returns a single invoice by company and number.
func (s *appService) GetInvoice(ctx context.Context, companyID, invoiceNumber string) (*InvoiceResult, error) {
	inv, err := s.invoices.Get(ctx, companyID, invoiceNumber)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: inv}, nil
}

// ListInvoices returns invoices in a trailing window of months.
func (s *appService) ListInvoices(ctx context.Context, companyID string, months int) (*InvoiceListResult, error) {
	invs, err := s.invoices.List(ctx, companyID, months)
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invs, CompanyID: companyID}, nil
}

// DeleteInvoice removes the invoice with its file and linked receipts.
func (s *appService) DeleteInvoice(ctx context.Context, companyID, invoiceNumber string) (*core.InvoiceDeleteResult, error) {
	return s.invoices.Delete(ctx, companyID, invoiceNumber)
}

// CreateReceipt validates, renders and persists a receipt.
func (s *appService) CreateReceipt(ctx context.Context, req CreateReceiptRequest) (*ReceiptResult, error) {
	receiptDate, err := parseDate("receiptDate", req.ReceiptDate)
	if err != nil {
		return nil, err
	}
	var invoiceNumber *string
	if req.InvoiceNumber != "" {
		invoiceNumber = &req.InvoiceNumber
	}

	r, err := s.receipts.Create(ctx, core.ReceiptInput{
		CompanyID:     req.CompanyID,
		ReceiptNumber: req.ReceiptNumber,
		InvoiceNumber: invoiceNumber,
		CustomerName:  req.CustomerName,
		ReceiptDate:   receiptDate,
		AmountPaid:    req.AmountPaid,
	})
	if err != nil {
		return nil, err
	}
	return &ReceiptResult{Receipt: r}, nil
}

// GetReceipt returns a single receipt by company and number.
func (s *appService) GetReceipt(ctx context.Context, companyID, receiptNumber string) (*ReceiptResult, error) {
	r, err := s.receipts.Get(ctx, companyID, receiptNumber)
	if err != nil {
		return nil, err
	}
	return &ReceiptResult{Receipt: r}, nil
}

// ListReceipts returns receipts in a trailing window of months.
func (s *appService) ListReceipts(ctx context.Context, companyID string, months int) (*ReceiptListResult, error) {
	rs, err := s.receipts.List(ctx, companyID, months)
	if err != nil {
		return nil, err
	}
	return &ReceiptListResult{Receipts: rs, CompanyID: companyID}, nil
}

// DeleteReceipt removes one receipt and resyncs its invoice.
func (s *appService) DeleteReceipt(ctx context.Context, companyID, receiptNumber string) error {
	return s.receipts.Delete(ctx, companyID, receiptNumber)
}

// DeleteReceiptsByInvoice removes every receipt referencing an invoice.
func (s *appService) DeleteReceiptsByInvoice(ctx context.Context, companyID, invoiceNumber string) (*core.BulkDeleteResult, error) {
	return s.receipts.DeleteByInvoice(ctx, companyID, invoiceNumber)
}

// AddExpense appends an entry to the monthly ledger.
func (s *appService) AddExpense(ctx context.Context, req ExpenseRequest) (*ExpenseResult, error) {
	e, err := s.expenses.Add(ctx, expenseInput(req))
	if err != nil {
		return nil, err
	}
	return &ExpenseResult{Expense: e}, nil
}

// UpsertDailyExpense replaces the tracked amount for one day.
func (s *appService) UpsertDailyExpense(ctx context.Context, req ExpenseRequest) (*ExpenseResult, error) {
	e, err := s.expenses.UpsertDaily(ctx, expenseInput(req))
	if err != nil {
		return nil, err
	}
	return &ExpenseResult{Expense: e}, nil
}

// ListExpenses returns a month's ledger entries.
func (s *appService) ListExpenses(ctx context.Context, companyID, month string, category *core.ExpenseCategory) (*ExpenseListResult, error) {
	es, err := s.expenses.List(ctx, companyID, month, category)
	if err != nil {
		return nil, err
	}
	return &ExpenseListResult{Expenses: es, CompanyID: companyID, Month: month}, nil
}

// PurgeExpenses deletes a month's ledger entries.
func (s *appService) PurgeExpenses(ctx context.Context, companyID, month string, category *core.ExpenseCategory) (*PurgeResult, error) {
	n, err := s.expenses.Purge(ctx, companyID, month, category)
	if err != nil {
		return nil, err
	}
	return &PurgeResult{Removed: n}, nil
}

// MonthlySummary returns the profit-and-loss view of one month.
func (s *appService) MonthlySummary(ctx context.Context, companyID, month string) (*core.MonthlySummary, error) {
	return s.reports.MonthlySummary(ctx, companyID, month)
}

// DailyRevenue returns the month's receipts bucketed by day.
func (s *appService) DailyRevenue(ctx context.Context, companyID, month string) (*core.DailySeries, error) {
	return s.reports.DailyRevenue(ctx, companyID, month)
}

// DailyExpenses returns the month's expenses bucketed by day.
func (s *appService) DailyExpenses(ctx context.Context, companyID, month string) (*core.DailySeries, error) {
	return s.reports.DailyExpenses(ctx, companyID, month)
}

// PrimaryReachable reports the primary store's current health.
func (s *appService) PrimaryReachable(ctx context.Context) bool {
	return s.health.Reachable(ctx)
}

// AdminAuthorize checks the supplied secret against the configured one.
func (s *appService) AdminAuthorize(secret string) error {
	return s.admin.Authorize(secret)
}

// AdminListCompanies returns every company; requires the admin secret.
func (s *appService) AdminListCompanies(ctx context.Context, secret string) (*CompanyListResult, error) {
	cs, err := s.admin.ListCompanies(ctx, secret)
	if err != nil {
		return nil, err
	}
	return &CompanyListResult{Companies: cs}, nil
}

// AdminDeleteCompany removes a company and everything it owns.
func (s *appService) AdminDeleteCompany(ctx context.Context, secret, companyID string) error {
	return s.admin.DeleteCompany(ctx, secret, companyID)
}

// AdminScanDuplicates reports colliding fallback records.
func (s *appService) AdminScanDuplicates(ctx context.Context, secret string) ([]core.DuplicateRecord, error) {
	return s.admin.ScanDuplicates(ctx, secret)
}

// AdminMigrate copies fallback records into the primary store.
func (s *appService) AdminMigrate(ctx context.Context, secret string) (*core.MigrationReport, error) {
	return s.admin.Migrate(ctx, secret)
}

// AdminStats returns record counts per store.
func (s *appService) AdminStats(ctx context.Context, secret string) (*core.StoreStats, error) {
	return s.admin.Stats(ctx, secret)
}

// ── private helpers ───────────────────────────────────────────────────────────

// parseDate parses a YYYY-MM-DD string; empty means the zero time, which the
// core services interpret as "today".
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: field, Message: "must be YYYY-MM-DD"}
	}
	return t, nil
}

func expenseInput(req ExpenseRequest) core.ExpenseInput {
	return core.ExpenseInput{
		CompanyID:   req.CompanyID,
		Month:       req.Month,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
		Day:         req.Day,
	}
}
