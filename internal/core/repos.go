package core

import (
	"context"
	"time"
)

// UniqueFields holds the candidate values checked by the conflict detector.
// An empty string means the field is not a candidate.
type UniqueFields struct {
	Name          string
	Email         string
	Phone         string
	AccountNumber string
}

// CompanyRepo is the dual-store adapter contract for companies. Writes go to
// the primary best-effort and always to the fallback; reads merge both
// stores with primary fields taking precedence.
type CompanyRepo interface {
	Upsert(ctx context.Context, c Company) error
	FindByID(ctx context.Context, id string) (*Company, error)
	List(ctx context.Context) ([]Company, error)
	Delete(ctx context.Context, id string) error

	// IDExists reports whether the id is taken in either store. The primary
	// is consulted only while reachable.
	IDExists(ctx context.Context, id string) (bool, error)

	// FindMatchingUnique returns companies whose name, email, phone or
	// account number equals any of the candidate values, excluding
	// excludeID. Queries the primary while reachable, otherwise scans the
	// fallback list.
	FindMatchingUnique(ctx context.Context, cand UniqueFields, excludeID string) ([]Company, error)
}

// InvoiceRepo is the dual-store adapter contract for invoices, keyed by
// (companyID, invoiceNumber).
type InvoiceRepo interface {
	Upsert(ctx context.Context, inv Invoice) error
	Find(ctx context.Context, companyID, invoiceNumber string) (*Invoice, error)
	List(ctx context.Context, companyID string, since time.Time, limit int) ([]Invoice, error)
	Delete(ctx context.Context, companyID, invoiceNumber string) error
	DeleteByCompany(ctx context.Context, companyID string) (int, error)
}

// ReceiptRepo is the dual-store adapter contract for receipts, keyed by
// (companyID, receiptNumber).
type ReceiptRepo interface {
	Upsert(ctx context.Context, r Receipt) error
	Find(ctx context.Context, companyID, receiptNumber string) (*Receipt, error)
	List(ctx context.Context, companyID string, since time.Time, limit int) ([]Receipt, error)
	FindByInvoice(ctx context.Context, companyID, invoiceNumber string) ([]Receipt, error)
	CountByInvoice(ctx context.Context, companyID, invoiceNumber string) (int, error)
	Delete(ctx context.Context, companyID, receiptNumber string) error
	DeleteByInvoice(ctx context.Context, companyID, invoiceNumber string) (int, error)
	DeleteByCompany(ctx context.Context, companyID string) (int, error)
}

// ExpenseRepo is the dual-store adapter contract for monthly ledger entries.
type ExpenseRepo interface {
	Insert(ctx context.Context, e Expense) error
	List(ctx context.Context, companyID, month string, category *ExpenseCategory) ([]Expense, error)

	// DeleteDaily removes every entry for (companyID, month, day). The daily
	// upsert calls it before inserting so at most one entry per day remains.
	DeleteDaily(ctx context.Context, companyID, month string, day int) (int, error)
	Delete(ctx context.Context, companyID, month string, category *ExpenseCategory) (int, error)
	DeleteByCompany(ctx context.Context, companyID string) (int, error)
}

// EntityCounts is a per-store record census.
type EntityCounts struct {
	Companies int `json:"companies"`
	Invoices  int `json:"invoices"`
	Receipts  int `json:"receipts"`
	Expenses  int `json:"expenses"`
}

// StoreStats is the admin aggregate view over both stores.
type StoreStats struct {
	PrimaryReachable bool         `json:"primary_reachable"`
	Primary          EntityCounts `json:"primary"`
	Fallback         EntityCounts `json:"fallback"`
}

// MigrationReport summarizes one fallback-to-primary reconciliation run.
// Failures counts records that could not be merged; the run continues past
// them rather than aborting.
type MigrationReport struct {
	Companies int      `json:"companies"`
	Invoices  int      `json:"invoices"`
	Receipts  int      `json:"receipts"`
	Expenses  int      `json:"expenses"`
	Failures  int      `json:"failures"`
	Errors    []string `json:"errors,omitempty"`
}

// DuplicateRecord flags a fallback company whose unique fields collide with a
// different company in the primary store.
type DuplicateRecord struct {
	CompanyID string   `json:"company_id"`
	Name      string   `json:"name"`
	Fields    []string `json:"fields"`
	MatchedID string   `json:"matched_id"`
}

// Reconciler merges fallback-store records into the primary once it is
// reachable again, and provides the cross-store admin scans.
type Reconciler interface {
	Migrate(ctx context.Context) (*MigrationReport, error)
	ScanDuplicates(ctx context.Context) ([]DuplicateRecord, error)
	Stats(ctx context.Context) (*StoreStats, error)
}

// Renderer is the document-rendering collaborator. Given a company profile
// and a structured record it produces the document bytes and a suggested
// filename; the caller chooses the storage path.
type Renderer interface {
	RenderInvoice(ctx context.Context, c *Company, inv *Invoice) ([]byte, string, error)
	RenderReceipt(ctx context.Context, c *Company, r *Receipt) ([]byte, string, error)
}
