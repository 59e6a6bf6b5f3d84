package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type BusinessType string

const (
	BusinessPrintingPress      BusinessType = "printing-press"
	BusinessManufacturing      BusinessType = "manufacturing"
	BusinessGeneralMerchandise BusinessType = "general-merchandise"
)

// TypeCode returns the two-letter code embedded in generated company IDs.
func (b BusinessType) TypeCode() string {
	switch b {
	case BusinessPrintingPress:
		return "PP"
	case BusinessManufacturing:
		return "MC"
	default:
		return "GM"
	}
}

// Company is the canonical company profile shared by the primary and
// fallback stores. Optional unique fields are pointers so that an absent
// value is distinguishable from an empty one when merging store records.
type Company struct {
	ID              string       `json:"company_id"`
	Name            string       `json:"name"`
	Address         *string      `json:"address,omitempty"`
	Email           *string      `json:"email,omitempty"`
	Phone           *string      `json:"phone,omitempty"`
	LogoPath        *string      `json:"logo_path,omitempty"`
	SignaturePath   *string      `json:"signature_path,omitempty"`
	BrandColor      *string      `json:"brand_color,omitempty"`
	Country         *string      `json:"country,omitempty"`
	CurrencySymbol  *string      `json:"currency_symbol,omitempty"`
	CurrencyCode    *string      `json:"currency_code,omitempty"`
	BankName        *string      `json:"bank_name,omitempty"`
	AccountName     *string      `json:"account_name,omitempty"`
	AccountNumber   *string      `json:"account_number,omitempty"`
	InvoiceTemplate *string      `json:"invoice_template,omitempty"`
	ReceiptTemplate *string      `json:"receipt_template,omitempty"`
	Terms           *string      `json:"terms,omitempty"`
	BusinessType    BusinessType `json:"business_type"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type InvoiceStatus string

const (
	InvoiceUnpaid InvoiceStatus = "unpaid"
	InvoicePaid   InvoiceStatus = "paid"
)

// LineItem is a single invoice line. Total is Quantity * UnitPrice, computed
// once at invoice creation.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// Invoice belongs to exactly one company. The (CompanyID, InvoiceNumber)
// pair is the natural key in both stores; Status is derived from the set of
// receipts that reference the invoice and is never authoritative on its own.
type Invoice struct {
	CompanyID      string          `json:"company_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	CustomerName   string          `json:"customer_name"`
	InvoiceDate    time.Time       `json:"invoice_date"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	Items          []LineItem      `json:"items"`
	Total          decimal.Decimal `json:"total"`
	CurrencySymbol string          `json:"currency_symbol"`
	CurrencyCode   string          `json:"currency_code"`
	Status         InvoiceStatus   `json:"status"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	DocumentPath   string          `json:"document_path,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Receipt records a payment, optionally against an invoice. Natural key is
// (CompanyID, ReceiptNumber).
type Receipt struct {
	CompanyID      string          `json:"company_id"`
	ReceiptNumber  string          `json:"receipt_number"`
	InvoiceNumber  *string         `json:"invoice_number,omitempty"`
	CustomerName   string          `json:"customer_name"`
	ReceiptDate    time.Time       `json:"receipt_date"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	CurrencySymbol string          `json:"currency_symbol"`
	CurrencyCode   string          `json:"currency_code"`
	DocumentPath   string          `json:"document_path,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type ExpenseCategory string

const (
	CategoryProduction ExpenseCategory = "production"
	CategoryExpense    ExpenseCategory = "expense"
)

// Expense is a monthly ledger entry. Day, when set (1-31), marks the entry as
// part of the daily series; the daily upsert guarantees at most one entry per
// (CompanyID, Month, Day).
type Expense struct {
	CompanyID      string          `json:"company_id"`
	Month          string          `json:"month"` // YYYY-MM
	Category       ExpenseCategory `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	Day            *int            `json:"day,omitempty"`
	CurrencySymbol string          `json:"currency_symbol"`
	CurrencyCode   string          `json:"currency_code"`
	CreatedAt      time.Time       `json:"created_at"`
}

// DefaultCurrencySymbol is used when a company has no currency configured.
const DefaultCurrencySymbol = "₦"

// currencyCodes maps a currency symbol to its ISO code when the company
// profile carries only the symbol.
var currencyCodes = map[string]string{
	"₦":   "NGN",
	"$":   "USD",
	"£":   "GBP",
	"€":   "EUR",
	"₵":   "GHS",
	"KSh": "KES",
	"R":   "ZAR",
	"₹":   "INR",
}

// ResolveCurrency returns the effective (symbol, code) pair for a company,
// applying the default symbol and the symbol→code table where fields are
// absent.
func ResolveCurrency(c *Company) (symbol, code string) {
	symbol = DefaultCurrencySymbol
	if c != nil && c.CurrencySymbol != nil && *c.CurrencySymbol != "" {
		symbol = *c.CurrencySymbol
	}
	if c != nil && c.CurrencyCode != nil && *c.CurrencyCode != "" {
		return symbol, *c.CurrencyCode
	}
	if mapped, ok := currencyCodes[symbol]; ok {
		return symbol, mapped
	}
	return symbol, "NGN"
}
