package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type ReceiptInput struct {
	CompanyID     string
	ReceiptNumber string
	InvoiceNumber *string
	CustomerName  string          // derived from the invoice when empty
	ReceiptDate   time.Time       // zero value means today
	AmountPaid    decimal.Decimal // derived from the invoice total when zero
}

// BulkDeleteResult aggregates a bulk receipt delete by invoice number.
type BulkDeleteResult struct {
	ReceiptsDeleted int           `json:"receipts_deleted"`
	FileFailures    int           `json:"file_failures"`
	InvoiceStatus   InvoiceStatus `json:"invoice_status,omitempty"`
}

// ReceiptService persists receipts and drives the invoice status sync on
// every create and delete.
type ReceiptService struct {
	companies CompanyRepo
	invoices  InvoiceRepo
	receipts  ReceiptRepo
	sync      *StatusSync
	renderer  Renderer
	vault     *DocumentVault
	log       zerolog.Logger
}

func NewReceiptService(companies CompanyRepo, invoices InvoiceRepo, receipts ReceiptRepo,
	sync *StatusSync, renderer Renderer, vault *DocumentVault, log zerolog.Logger) *ReceiptService {
	return &ReceiptService{
		companies: companies,
		invoices:  invoices,
		receipts:  receipts,
		sync:      sync,
		renderer:  renderer,
		vault:     vault,
		log:       log.With().Str("component", "receipts").Logger(),
	}
}

// Create validates and persists a receipt. When the receipt references an
// invoice, an absent amount or customer name is derived from it; afterwards
// the invoice status is resynced.
func (s *ReceiptService) Create(ctx context.Context, in ReceiptInput) (*Receipt, error) {
	if strings.TrimSpace(in.CompanyID) == "" {
		return nil, &ValidationError{Field: "companyId", Message: "required"}
	}
	number := strings.TrimSpace(in.ReceiptNumber)
	if number == "" {
		return nil, &ValidationError{Field: "receiptNumber", Message: "required"}
	}

	company, err := s.companies.FindByID(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, &NotFoundError{Kind: "company", Key: in.CompanyID}
	}

	existing, err := s.receipts.Find(ctx, in.CompanyID, number)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ConflictError{Fields: []string{"receiptNumber"}}
	}

	amount := in.AmountPaid
	customer := in.CustomerName
	var invoiceNumber *string
	if in.InvoiceNumber != nil && strings.TrimSpace(*in.InvoiceNumber) != "" {
		n := strings.TrimSpace(*in.InvoiceNumber)
		invoiceNumber = &n
		inv, err := s.invoices.Find(ctx, in.CompanyID, n)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			if amount.IsZero() {
				amount = inv.Total
			}
			if customer == "" {
				customer = inv.CustomerName
			}
		}
	}
	if amount.IsNegative() {
		return nil, &ValidationError{Field: "amountPaid", Message: "must not be negative"}
	}

	receiptDate := in.ReceiptDate
	if receiptDate.IsZero() {
		receiptDate = time.Now()
	}
	symbol, code := ResolveCurrency(company)

	r := Receipt{
		CompanyID:      in.CompanyID,
		ReceiptNumber:  number,
		InvoiceNumber:  invoiceNumber,
		CustomerName:   customer,
		ReceiptDate:    receiptDate,
		AmountPaid:     amount,
		CurrencySymbol: symbol,
		CurrencyCode:   code,
		CreatedAt:      time.Now(),
	}

	data, filename, err := s.renderer.RenderReceipt(ctx, company, &r)
	if err != nil {
		return nil, &RenderError{Kind: "receipt", Err: err}
	}
	path, err := s.vault.Save(DocReceipt, filename, data)
	if err != nil {
		return nil, &RenderError{Kind: "receipt", Err: err}
	}
	r.DocumentPath = path

	if err := s.receipts.Upsert(ctx, r); err != nil {
		return nil, fmt.Errorf("persist receipt: %w", err)
	}

	if invoiceNumber != nil {
		if _, err := s.sync.Resync(ctx, in.CompanyID, *invoiceNumber); err != nil {
			s.log.Warn().Err(err).Str("invoice_number", *invoiceNumber).Msg("status resync failed after create")
		}
	}
	s.log.Info().Str("company_id", r.CompanyID).Str("receipt_number", number).Msg("receipt created")
	return &r, nil
}

// Get returns the receipt or a NotFoundError.
func (s *ReceiptService) Get(ctx context.Context, companyID, receiptNumber string) (*Receipt, error) {
	r, err := s.receipts.Find(ctx, companyID, receiptNumber)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, &NotFoundError{Kind: "receipt", Key: companyID + "/" + receiptNumber}
	}
	return r, nil
}

// List returns receipts in a trailing window (months <= 0 means the default
// six) capped at MaxListResults.
func (s *ReceiptService) List(ctx context.Context, companyID string, months int) ([]Receipt, error) {
	if months <= 0 {
		months = DefaultListWindowMonths
	}
	since := time.Now().AddDate(0, -months, 0)
	return s.receipts.List(ctx, companyID, since, MaxListResults)
}

// Delete removes one receipt and its rendered file, then resyncs the
// referenced invoice. A failed file removal is logged, not propagated.
func (s *ReceiptService) Delete(ctx context.Context, companyID, receiptNumber string) error {
	r, err := s.Get(ctx, companyID, receiptNumber)
	if err != nil {
		return err
	}
	_ = s.vault.Remove(r.DocumentPath)

	if err := s.receipts.Delete(ctx, companyID, receiptNumber); err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	if r.InvoiceNumber != nil {
		if _, err := s.sync.Resync(ctx, companyID, *r.InvoiceNumber); err != nil {
			s.log.Warn().Err(err).Str("invoice_number", *r.InvoiceNumber).Msg("status resync failed after delete")
		}
	}
	return nil
}

// DeleteByInvoice removes every receipt referencing the invoice and resyncs
// its status once at the end.
func (s *ReceiptService) DeleteByInvoice(ctx context.Context, companyID, invoiceNumber string) (*BulkDeleteResult, error) {
	receipts, err := s.receipts.FindByInvoice(ctx, companyID, invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("find receipts for invoice %s: %w", invoiceNumber, err)
	}

	res := &BulkDeleteResult{}
	for _, r := range receipts {
		if err := s.vault.Remove(r.DocumentPath); err != nil {
			res.FileFailures++
		}
	}
	deleted, err := s.receipts.DeleteByInvoice(ctx, companyID, invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("bulk delete receipts: %w", err)
	}
	res.ReceiptsDeleted = deleted

	status, err := s.sync.Resync(ctx, companyID, invoiceNumber)
	if err != nil {
		s.log.Warn().Err(err).Str("invoice_number", invoiceNumber).Msg("status resync failed after bulk delete")
	}
	res.InvoiceStatus = status
	return res, nil
}
