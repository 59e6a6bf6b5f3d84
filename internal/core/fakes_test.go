package core_test

import (
	"context"
	"time"

	"bizbooks/internal/core"
)

// In-memory repo implementations for the service tests. They mirror the
// dual-store adapters' contracts without any persistence.

type memCompanyRepo struct {
	companies map[string]core.Company
	// forceIDExists makes every generated id look taken.
	forceIDExists bool
}

func newMemCompanyRepo() *memCompanyRepo {
	return &memCompanyRepo{companies: make(map[string]core.Company)}
}

func (m *memCompanyRepo) Upsert(_ context.Context, c core.Company) error {
	m.companies[c.ID] = c
	return nil
}

func (m *memCompanyRepo) FindByID(_ context.Context, id string) (*core.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memCompanyRepo) List(_ context.Context) ([]core.Company, error) {
	out := make([]core.Company, 0, len(m.companies))
	for _, c := range m.companies {
		out = append(out, c)
	}
	return out, nil
}

func (m *memCompanyRepo) Delete(_ context.Context, id string) error {
	delete(m.companies, id)
	return nil
}

func (m *memCompanyRepo) IDExists(_ context.Context, id string) (bool, error) {
	if m.forceIDExists {
		return true, nil
	}
	_, ok := m.companies[id]
	return ok, nil
}

func (m *memCompanyRepo) FindMatchingUnique(_ context.Context, cand core.UniqueFields, excludeID string) ([]core.Company, error) {
	var out []core.Company
	for _, c := range m.companies {
		if c.ID == excludeID {
			continue
		}
		if len(core.CollidingFields(cand, c)) > 0 {
			out = append(out, c)
		}
	}
	return out, nil
}

type memInvoiceRepo struct {
	invoices map[string]core.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: make(map[string]core.Invoice)}
}

func invKey(companyID, number string) string { return companyID + "\x00" + number }

func (m *memInvoiceRepo) Upsert(_ context.Context, inv core.Invoice) error {
	m.invoices[invKey(inv.CompanyID, inv.InvoiceNumber)] = inv
	return nil
}

func (m *memInvoiceRepo) Find(_ context.Context, companyID, number string) (*core.Invoice, error) {
	inv, ok := m.invoices[invKey(companyID, number)]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (m *memInvoiceRepo) List(_ context.Context, companyID string, since time.Time, limit int) ([]core.Invoice, error) {
	var out []core.Invoice
	for _, inv := range m.invoices {
		if inv.CompanyID != companyID || inv.CreatedAt.Before(since) {
			continue
		}
		out = append(out, inv)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memInvoiceRepo) Delete(_ context.Context, companyID, number string) error {
	delete(m.invoices, invKey(companyID, number))
	return nil
}

func (m *memInvoiceRepo) DeleteByCompany(_ context.Context, companyID string) (int, error) {
	n := 0
	for k, inv := range m.invoices {
		if inv.CompanyID == companyID {
			delete(m.invoices, k)
			n++
		}
	}
	return n, nil
}

type memReceiptRepo struct {
	receipts map[string]core.Receipt
}

func newMemReceiptRepo() *memReceiptRepo {
	return &memReceiptRepo{receipts: make(map[string]core.Receipt)}
}

func (m *memReceiptRepo) Upsert(_ context.Context, r core.Receipt) error {
	m.receipts[invKey(r.CompanyID, r.ReceiptNumber)] = r
	return nil
}

func (m *memReceiptRepo) Find(_ context.Context, companyID, number string) (*core.Receipt, error) {
	r, ok := m.receipts[invKey(companyID, number)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memReceiptRepo) List(_ context.Context, companyID string, since time.Time, limit int) ([]core.Receipt, error) {
	var out []core.Receipt
	for _, r := range m.receipts {
		if r.CompanyID != companyID || r.CreatedAt.Before(since) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memReceiptRepo) FindByInvoice(_ context.Context, companyID, invoiceNumber string) ([]core.Receipt, error) {
	var out []core.Receipt
	for _, r := range m.receipts {
		if r.CompanyID == companyID && r.InvoiceNumber != nil && *r.InvoiceNumber == invoiceNumber {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReceiptRepo) CountByInvoice(ctx context.Context, companyID, invoiceNumber string) (int, error) {
	rs, err := m.FindByInvoice(ctx, companyID, invoiceNumber)
	return len(rs), err
}

func (m *memReceiptRepo) Delete(_ context.Context, companyID, number string) error {
	delete(m.receipts, invKey(companyID, number))
	return nil
}

func (m *memReceiptRepo) DeleteByInvoice(ctx context.Context, companyID, invoiceNumber string) (int, error) {
	rs, _ := m.FindByInvoice(ctx, companyID, invoiceNumber)
	for _, r := range rs {
		delete(m.receipts, invKey(companyID, r.ReceiptNumber))
	}
	return len(rs), nil
}

func (m *memReceiptRepo) DeleteByCompany(_ context.Context, companyID string) (int, error) {
	n := 0
	for k, r := range m.receipts {
		if r.CompanyID == companyID {
			delete(m.receipts, k)
			n++
		}
	}
	return n, nil
}

type memExpenseRepo struct {
	expenses []core.Expense
}

func (m *memExpenseRepo) Insert(_ context.Context, e core.Expense) error {
	m.expenses = append(m.expenses, e)
	return nil
}

func (m *memExpenseRepo) List(_ context.Context, companyID, month string, category *core.ExpenseCategory) ([]core.Expense, error) {
	var out []core.Expense
	for _, e := range m.expenses {
		if e.CompanyID != companyID || e.Month != month {
			continue
		}
		if category != nil && e.Category != *category {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memExpenseRepo) DeleteDaily(_ context.Context, companyID, month string, day int) (int, error) {
	return m.deleteWhere(func(e core.Expense) bool {
		return e.CompanyID == companyID && e.Month == month && e.Day != nil && *e.Day == day
	}), nil
}

func (m *memExpenseRepo) Delete(_ context.Context, companyID, month string, category *core.ExpenseCategory) (int, error) {
	return m.deleteWhere(func(e core.Expense) bool {
		if e.CompanyID != companyID || e.Month != month {
			return false
		}
		return category == nil || e.Category == *category
	}), nil
}

func (m *memExpenseRepo) DeleteByCompany(_ context.Context, companyID string) (int, error) {
	return m.deleteWhere(func(e core.Expense) bool { return e.CompanyID == companyID }), nil
}

func (m *memExpenseRepo) deleteWhere(pred func(core.Expense) bool) int {
	kept := m.expenses[:0]
	n := 0
	for _, e := range m.expenses {
		if pred(e) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.expenses = kept
	return n
}

// stubRenderer returns fixed bytes; rendering itself is covered elsewhere.
type stubRenderer struct{}

func (stubRenderer) RenderInvoice(_ context.Context, _ *core.Company, inv *core.Invoice) ([]byte, string, error) {
	return []byte("invoice"), inv.CompanyID + "_" + inv.InvoiceNumber, nil
}

func (stubRenderer) RenderReceipt(_ context.Context, _ *core.Company, r *core.Receipt) ([]byte, string, error) {
	return []byte("receipt"), r.CompanyID + "_" + r.ReceiptNumber, nil
}
