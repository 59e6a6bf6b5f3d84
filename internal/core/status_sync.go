package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// StatusSync keeps each invoice's derived paid/unpaid status consistent with
// the set of receipts referencing it. The recomputation is a read-then-write,
// so it runs under a per-(companyID, invoiceNumber) lock: two concurrent
// receipt mutations against the same invoice serialize instead of racing.
type StatusSync struct {
	invoices InvoiceRepo
	receipts ReceiptRepo
	locks    *keyedMutex
	log      zerolog.Logger
}

func NewStatusSync(invoices InvoiceRepo, receipts ReceiptRepo, log zerolog.Logger) *StatusSync {
	return &StatusSync{
		invoices: invoices,
		receipts: receipts,
		locks:    newKeyedMutex(),
		log:      log.With().Str("component", "status_sync").Logger(),
	}
}

func syncKey(companyID, invoiceNumber string) string {
	return companyID + "\x00" + invoiceNumber
}

// Resync recomputes the invoice's status from the current receipt count:
// paid with a timestamp when at least one receipt references it, unpaid with
// the timestamp cleared otherwise. A missing invoice is not an error: a
// receipt may reference an invoice number that was never generated here.
func (s *StatusSync) Resync(ctx context.Context, companyID, invoiceNumber string) (InvoiceStatus, error) {
	unlock := s.locks.Lock(syncKey(companyID, invoiceNumber))
	defer unlock()

	inv, err := s.invoices.Find(ctx, companyID, invoiceNumber)
	if err != nil {
		return "", fmt.Errorf("load invoice %s/%s: %w", companyID, invoiceNumber, err)
	}
	if inv == nil {
		return "", nil
	}

	count, err := s.receipts.CountByInvoice(ctx, companyID, invoiceNumber)
	if err != nil {
		return "", fmt.Errorf("count receipts for %s/%s: %w", companyID, invoiceNumber, err)
	}

	status := InvoiceUnpaid
	var paidAt *time.Time
	if count >= 1 {
		status = InvoicePaid
		if inv.PaidAt != nil {
			paidAt = inv.PaidAt
		} else {
			now := time.Now()
			paidAt = &now
		}
	}

	if inv.Status == status && equalTimePtr(inv.PaidAt, paidAt) {
		return status, nil
	}

	inv.Status = status
	inv.PaidAt = paidAt
	if err := s.invoices.Upsert(ctx, *inv); err != nil {
		return "", fmt.Errorf("update invoice status %s/%s: %w", companyID, invoiceNumber, err)
	}
	s.log.Debug().
		Str("company_id", companyID).
		Str("invoice_number", invoiceNumber).
		Str("status", string(status)).
		Int("receipts", count).
		Msg("invoice status recomputed")
	return status, nil
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
