package app

import "bizbooks/internal/core"

// CompanyResult is returned by company lifecycle operations.
type CompanyResult struct {
	Company *core.Company
}

// CompanyListResult is returned by ListCompanies.
type CompanyListResult struct {
	Companies []core.Company
}

// InvoiceResult is returned by CreateInvoice and GetInvoice.
type InvoiceResult struct {
	Invoice *core.Invoice
}

// InvoiceListResult is returned by ListInvoices.
type InvoiceListResult struct {
	Invoices  []core.Invoice
	CompanyID string
}

// ReceiptResult is returned by CreateReceipt and GetReceipt.
type ReceiptResult struct {
	Receipt *core.Receipt
}

// ReceiptListResult is returned by ListReceipts.
type ReceiptListResult struct {
	Receipts  []core.Receipt
	CompanyID string
}

// ExpenseResult is returned by AddExpense and UpsertDailyExpense.
type ExpenseResult struct {
	Expense *core.Expense
}

// ExpenseListResult is returned by ListExpenses.
type ExpenseListResult struct {
	Expenses  []core.Expense
	CompanyID string
	Month     string
}

// PurgeResult is returned by PurgeExpenses.
type PurgeResult struct {
	Removed int
}
