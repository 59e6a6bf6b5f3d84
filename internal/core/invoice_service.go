package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// DefaultListWindowMonths is the trailing time window for invoice and
	// receipt listings when the caller does not specify one.
	DefaultListWindowMonths = 6

	// MaxListResults caps listing result counts.
	MaxListResults = 200
)

// LineItemInput is an invoice line as submitted; the line total is computed
// here, never accepted from the caller.
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

type InvoiceInput struct {
	CompanyID     string
	InvoiceNumber string
	CustomerName  string
	InvoiceDate   time.Time // zero value means today
	DueDate       *time.Time
	Items         []LineItemInput
}

// InvoiceDeleteResult aggregates a cascading invoice delete. File-removal
// failures are counted, not propagated.
type InvoiceDeleteResult struct {
	ReceiptsDeleted int `json:"receipts_deleted"`
	FileFailures    int `json:"file_failures"`
}

// InvoiceService persists invoices through the dual-store adapter and owns
// the delete cascade to receipts and rendered files.
type InvoiceService struct {
	companies CompanyRepo
	invoices  InvoiceRepo
	receipts  ReceiptRepo
	sync      *StatusSync
	renderer  Renderer
	vault     *DocumentVault
	log       zerolog.Logger
}

func NewInvoiceService(companies CompanyRepo, invoices InvoiceRepo, receipts ReceiptRepo,
	sync *StatusSync, renderer Renderer, vault *DocumentVault, log zerolog.Logger) *InvoiceService {
	return &InvoiceService{
		companies: companies,
		invoices:  invoices,
		receipts:  receipts,
		sync:      sync,
		renderer:  renderer,
		vault:     vault,
		log:       log.With().Str("component", "invoices").Logger(),
	}
}

// Create validates and persists a new invoice, rendering its document first.
// The invoice carries the owning company's currency; a currency supplied by
// the caller is ignored, which keeps the single-company-currency invariant.
func (s *InvoiceService) Create(ctx context.Context, in InvoiceInput) (*Invoice, error) {
	if strings.TrimSpace(in.CompanyID) == "" {
		return nil, &ValidationError{Field: "companyId", Message: "required"}
	}
	number := strings.TrimSpace(in.InvoiceNumber)
	if number == "" {
		return nil, &ValidationError{Field: "invoiceNumber", Message: "required"}
	}
	if len(in.Items) == 0 {
		return nil, &ValidationError{Field: "items", Message: "at least one line item required"}
	}

	company, err := s.companies.FindByID(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, &NotFoundError{Kind: "company", Key: in.CompanyID}
	}

	existing, err := s.invoices.Find(ctx, in.CompanyID, number)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ConflictError{Fields: []string{"invoiceNumber"}}
	}

	items := make([]LineItem, len(in.Items))
	total := decimal.Zero
	for i, li := range in.Items {
		if strings.TrimSpace(li.Description) == "" {
			return nil, &ValidationError{Field: "items", Message: fmt.Sprintf("line %d: description required", i+1)}
		}
		if li.Quantity.IsNegative() || li.UnitPrice.IsNegative() {
			return nil, &ValidationError{Field: "items", Message: fmt.Sprintf("line %d: negative amount", i+1)}
		}
		lineTotal := li.Quantity.Mul(li.UnitPrice)
		items[i] = LineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Total:       lineTotal,
		}
		total = total.Add(lineTotal)
	}

	invoiceDate := in.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = time.Now()
	}
	symbol, code := ResolveCurrency(company)

	inv := Invoice{
		CompanyID:      in.CompanyID,
		InvoiceNumber:  number,
		CustomerName:   in.CustomerName,
		InvoiceDate:    invoiceDate,
		DueDate:        in.DueDate,
		Items:          items,
		Total:          total,
		CurrencySymbol: symbol,
		CurrencyCode:   code,
		Status:         InvoiceUnpaid,
		CreatedAt:      time.Now(),
	}

	data, filename, err := s.renderer.RenderInvoice(ctx, company, &inv)
	if err != nil {
		return nil, &RenderError{Kind: "invoice", Err: err}
	}
	path, err := s.vault.Save(DocInvoice, filename, data)
	if err != nil {
		return nil, &RenderError{Kind: "invoice", Err: err}
	}
	inv.DocumentPath = path

	if err := s.invoices.Upsert(ctx, inv); err != nil {
		return nil, fmt.Errorf("persist invoice: %w", err)
	}
	s.log.Info().Str("company_id", inv.CompanyID).Str("invoice_number", number).Msg("invoice created")
	return &inv, nil
}

// Get returns the invoice or a NotFoundError.
func (s *InvoiceService) Get(ctx context.Context, companyID, invoiceNumber string) (*Invoice, error) {
	inv, err := s.invoices.Find(ctx, companyID, invoiceNumber)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, &NotFoundError{Kind: "invoice", Key: companyID + "/" + invoiceNumber}
	}
	return inv, nil
}

// List returns invoices in a trailing window (months <= 0 means the default
// six) capped at MaxListResults.
func (s *InvoiceService) List(ctx context.Context, companyID string, months int) ([]Invoice, error) {
	if months <= 0 {
		months = DefaultListWindowMonths
	}
	since := time.Now().AddDate(0, -months, 0)
	return s.invoices.List(ctx, companyID, since, MaxListResults)
}

// Delete cascades: every receipt referencing the invoice is removed along
// with its rendered file, then the invoice and its own file. File failures
// are aggregated in the result rather than aborting the cascade.
func (s *InvoiceService) Delete(ctx context.Context, companyID, invoiceNumber string) (*InvoiceDeleteResult, error) {
	inv, err := s.Get(ctx, companyID, invoiceNumber)
	if err != nil {
		return nil, err
	}

	res := &InvoiceDeleteResult{}
	receipts, err := s.receipts.FindByInvoice(ctx, companyID, invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("find linked receipts: %w", err)
	}
	for _, r := range receipts {
		if err := s.vault.Remove(r.DocumentPath); err != nil {
			res.FileFailures++
		}
	}
	deleted, err := s.receipts.DeleteByInvoice(ctx, companyID, invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("delete linked receipts: %w", err)
	}
	res.ReceiptsDeleted = deleted

	if err := s.vault.Remove(inv.DocumentPath); err != nil {
		res.FileFailures++
	}
	if err := s.invoices.Delete(ctx, companyID, invoiceNumber); err != nil {
		return nil, fmt.Errorf("delete invoice: %w", err)
	}
	s.log.Info().
		Str("company_id", companyID).
		Str("invoice_number", invoiceNumber).
		Int("receipts_deleted", res.ReceiptsDeleted).
		Msg("invoice deleted with cascade")
	return res, nil
}
