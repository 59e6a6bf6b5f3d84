package app

import (
	"github.com/shopspring/decimal"

	"bizbooks/internal/core"
)

// RegisterCompanyRequest is the input for registering a company. Optional
// fields are pointers: nil means "not supplied".
type RegisterCompanyRequest struct {
	Name            string
	Address         *string
	Email           *string
	Phone           *string
	LogoPath        *string
	SignaturePath   *string
	BrandColor      *string
	Country         *string
	CurrencySymbol  *string
	CurrencyCode    *string
	BankName        *string
	AccountName     *string
	AccountNumber   *string
	InvoiceTemplate *string
	ReceiptTemplate *string
	Terms           *string
	BusinessType    string
}

// UpdateCompanyRequest is a merge-patch: nil keeps the stored value, an
// empty string clears it. Logo and signature references follow the same
// rule, so images change only when a new asset is supplied or explicitly
// cleared.
type UpdateCompanyRequest struct {
	Name            *string
	Address         *string
	Email           *string
	Phone           *string
	LogoPath        *string
	SignaturePath   *string
	BrandColor      *string
	Country         *string
	CurrencySymbol  *string
	CurrencyCode    *string
	BankName        *string
	AccountName     *string
	AccountNumber   *string
	InvoiceTemplate *string
	ReceiptTemplate *string
	Terms           *string
	BusinessType    *string
}

// CreateInvoiceRequest is the input for generating an invoice.
type CreateInvoiceRequest struct {
	CompanyID     string
	InvoiceNumber string
	CustomerName  string
	InvoiceDate   string // YYYY-MM-DD, empty means today
	DueDate       string // YYYY-MM-DD, optional
	Items         []InvoiceLineInput
}

// InvoiceLineInput is a single line within a CreateInvoiceRequest.
type InvoiceLineInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreateReceiptRequest is the input for generating a receipt. AmountPaid and
// CustomerName may be omitted when InvoiceNumber is set; they are derived
// from the invoice.
type CreateReceiptRequest struct {
	CompanyID     string
	ReceiptNumber string
	InvoiceNumber string // optional
	CustomerName  string
	ReceiptDate   string // YYYY-MM-DD, empty means today
	AmountPaid    decimal.Decimal
}

// ExpenseRequest is the input for a ledger entry or a daily upsert.
type ExpenseRequest struct {
	CompanyID   string
	Month       string // YYYY-MM
	Category    core.ExpenseCategory
	Amount      decimal.Decimal
	Description string
	Day         *int // 1-31, required for the daily upsert
}
