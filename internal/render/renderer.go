// Package render produces the printable documents for invoices and
// receipts. It is a thin collaborator: given a company profile and a
// structured record it returns document bytes and a suggested filename; the
// caller owns storage paths and persistence.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"bizbooks/internal/core"
)

type HTMLRenderer struct {
	invoiceTmpl *template.Template
	receiptTmpl *template.Template
}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		invoiceTmpl: template.Must(template.New("invoice").Parse(invoiceTemplate)),
		receiptTmpl: template.Must(template.New("receipt").Parse(receiptTemplate)),
	}
}

func (r *HTMLRenderer) RenderInvoice(_ context.Context, c *core.Company, inv *core.Invoice) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := r.invoiceTmpl.Execute(&buf, map[string]any{"Company": c, "Invoice": inv}); err != nil {
		return nil, "", fmt.Errorf("execute invoice template: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("%s_%s", inv.CompanyID, inv.InvoiceNumber), nil
}

func (r *HTMLRenderer) RenderReceipt(_ context.Context, c *core.Company, rc *core.Receipt) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := r.receiptTmpl.Execute(&buf, map[string]any{"Company": c, "Receipt": rc}); err != nil {
		return nil, "", fmt.Errorf("execute receipt template: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("%s_%s", rc.CompanyID, rc.ReceiptNumber), nil
}

const invoiceTemplate = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Invoice {{.Invoice.InvoiceNumber}}</title></head>
<body style="font-family:sans-serif">
<h1>{{.Company.Name}}</h1>
<h2>Invoice {{.Invoice.InvoiceNumber}}</h2>
<p>Customer: {{.Invoice.CustomerName}}</p>
<p>Date: {{.Invoice.InvoiceDate.Format "2006-01-02"}}</p>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Description</th><th>Qty</th><th>Unit Price</th><th>Total</th></tr>
{{range .Invoice.Items}}<tr><td>{{.Description}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice}}</td><td>{{.Total}}</td></tr>
{{end}}</table>
<h3>Total: {{.Invoice.CurrencySymbol}}{{.Invoice.Total}}</h3>
{{if .Company.Terms}}<p>{{.Company.Terms}}</p>{{end}}
</body></html>`

const receiptTemplate = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Receipt {{.Receipt.ReceiptNumber}}</title></head>
<body style="font-family:sans-serif">
<h1>{{.Company.Name}}</h1>
<h2>Receipt {{.Receipt.ReceiptNumber}}</h2>
<p>Received from: {{.Receipt.CustomerName}}</p>
<p>Date: {{.Receipt.ReceiptDate.Format "2006-01-02"}}</p>
{{if .Receipt.InvoiceNumber}}<p>Against invoice: {{.Receipt.InvoiceNumber}}</p>{{end}}
<h3>Amount paid: {{.Receipt.CurrencySymbol}}{{.Receipt.AmountPaid}}</h3>
</body></html>`
