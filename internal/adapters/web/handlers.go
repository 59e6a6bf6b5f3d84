package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"bizbooks/internal/app"
	"bizbooks/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc         app.ApplicationService
	router      chi.Router
	jwtSecret   string
	adminSecret string
	fileServer  http.Handler
}

// NewHandler creates and wires the chi router with all routes. filesDir is
// the document vault root; its contents are served under /files/*.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret, adminSecret, filesDir string, log zerolog.Logger) http.Handler {
	h := &Handler{
		svc:         svc,
		jwtSecret:   jwtSecret,
		adminSecret: adminSecret,
		fileServer:  http.FileServer(http.Dir(filesDir)),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Rendered documents served at /files/* ────────────────────────────────
	r.Get(core.PublicFilePrefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		http.StripPrefix(core.PublicFilePrefix, h.fileServer).ServeHTTP(w, req)
	})

	// ── Company-facing API ───────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Post("/api/companies", h.registerCompany)
		r.Get("/api/companies/{companyID}", h.getCompany)
		r.Patch("/api/companies/{companyID}", h.updateCompany)

		r.Post("/api/companies/{companyID}/invoices", h.createInvoice)
		r.Get("/api/companies/{companyID}/invoices", h.listInvoices)
		r.Get("/api/companies/{companyID}/invoices/{invoiceNumber}", h.getInvoice)
		r.Delete("/api/companies/{companyID}/invoices/{invoiceNumber}", h.deleteInvoice)
		r.Delete("/api/companies/{companyID}/invoices/{invoiceNumber}/receipts", h.deleteReceiptsByInvoice)

		r.Post("/api/companies/{companyID}/receipts", h.createReceipt)
		r.Get("/api/companies/{companyID}/receipts", h.listReceipts)
		r.Get("/api/companies/{companyID}/receipts/{receiptNumber}", h.getReceipt)
		r.Delete("/api/companies/{companyID}/receipts/{receiptNumber}", h.deleteReceipt)

		r.Post("/api/companies/{companyID}/expenses", h.addExpense)
		r.Put("/api/companies/{companyID}/expenses/daily", h.upsertDailyExpense)
		r.Get("/api/companies/{companyID}/expenses", h.listExpenses)
		r.Delete("/api/companies/{companyID}/expenses", h.purgeExpenses)

		r.Get("/api/companies/{companyID}/reports/summary", h.monthlySummary)
		r.Get("/api/companies/{companyID}/reports/daily-revenue", h.dailyRevenue)
		r.Get("/api/companies/{companyID}/reports/daily-expenses", h.dailyExpenses)
	})

	// ── Admin API (shared secret or session cookie) ──────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20))

		r.Post("/api/admin/session", h.adminLogin)
		r.Delete("/api/admin/session", h.adminLogout)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Get("/api/admin/companies", h.adminListCompanies)
			r.Delete("/api/admin/companies/{companyID}", h.adminDeleteCompany)
			r.Get("/api/admin/duplicates", h.adminScanDuplicates)
			r.Post("/api/admin/migrate", h.adminMigrate)
			r.Get("/api/admin/stats", h.adminStats)
		})
	})

	h.router = r
	return r
}

// health reports service status and whether the primary store answers.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status  string `json:"status"`
		Primary bool   `json:"primary"`
	}
	writeJSON(w, response{Status: "ok", Primary: h.svc.PrimaryReachable(r.Context())})
}

// ── Companies ─────────────────────────────────────────────────────────────────

type companyPayload struct {
	Name            string  `json:"name"`
	Address         *string `json:"address"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	LogoPath        *string `json:"logo_path"`
	SignaturePath   *string `json:"signature_path"`
	BrandColor      *string `json:"brand_color"`
	Country         *string `json:"country"`
	CurrencySymbol  *string `json:"currency_symbol"`
	CurrencyCode    *string `json:"currency_code"`
	BankName        *string `json:"bank_name"`
	AccountName     *string `json:"account_name"`
	AccountNumber   *string `json:"account_number"`
	InvoiceTemplate *string `json:"invoice_template"`
	ReceiptTemplate *string `json:"receipt_template"`
	Terms           *string `json:"terms"`
	BusinessType    string  `json:"business_type"`
}

func (h *Handler) registerCompany(w http.ResponseWriter, r *http.Request) {
	var req companyPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.RegisterCompany(r.Context(), app.RegisterCompanyRequest{
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
		BusinessType:    req.BusinessType,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(res.Company)
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetCompany(r.Context(), pathParam(r, "companyID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Company)
}

type companyPatchPayload struct {
	Name            *string `json:"name"`
	Address         *string `json:"address"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	LogoPath        *string `json:"logo_path"`
	SignaturePath   *string `json:"signature_path"`
	BrandColor      *string `json:"brand_color"`
	Country         *string `json:"country"`
	CurrencySymbol  *string `json:"currency_symbol"`
	CurrencyCode    *string `json:"currency_code"`
	BankName        *string `json:"bank_name"`
	AccountName     *string `json:"account_name"`
	AccountNumber   *string `json:"account_number"`
	InvoiceTemplate *string `json:"invoice_template"`
	ReceiptTemplate *string `json:"receipt_template"`
	Terms           *string `json:"terms"`
	BusinessType    *string `json:"business_type"`
}

func (h *Handler) updateCompany(w http.ResponseWriter, r *http.Request) {
	var req companyPatchPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.UpdateCompany(r.Context(), pathParam(r, "companyID"), app.UpdateCompanyRequest{
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
		BusinessType:    req.BusinessType,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Company)
}

// ── Invoices ──────────────────────────────────────────────────────────────────

type invoicePayload struct {
	InvoiceNumber string `json:"invoice_number"`
	CustomerName  string `json:"customer_name"`
	InvoiceDate   string `json:"invoice_date"`
	DueDate       string `json:"due_date"`
	Items         []struct {
		Description string          `json:"description"`
		Quantity    decimal.Decimal `json:"quantity"`
		UnitPrice   decimal.Decimal `json:"unit_price"`
	} `json:"items"`
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoicePayload
	if !decodeJSON(w, r, &req) {
		return
	}
	items := make([]app.InvoiceLineInput, len(req.Items))
	for i, li := range req.Items {
		items[i] = app.InvoiceLineInput{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
		}
	}
	res, err := h.svc.CreateInvoice(r.Context(), app.CreateInvoiceRequest{
		CompanyID:     pathParam(r, "companyID"),
		InvoiceNumber: req.InvoiceNumber,
		CustomerName:  req.CustomerName,
		InvoiceDate:   req.InvoiceDate,
		DueDate:       req.DueDate,
		Items:         items,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(res.Invoice)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetInvoice(r.Context(), pathParam(r, "companyID"), pathParam(r, "invoiceNumber"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Invoice)
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListInvoices(r.Context(), pathParam(r, "companyID"), monthsParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Invoices)
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeleteInvoice(r.Context(), pathParam(r, "companyID"), pathParam(r, "invoiceNumber"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) deleteReceiptsByInvoice(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeleteReceiptsByInvoice(r.Context(), pathParam(r, "companyID"), pathParam(r, "invoiceNumber"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// ── Receipts ──────────────────────────────────────────────────────────────────

type receiptPayload struct {
	ReceiptNumber string          `json:"receipt_number"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	ReceiptDate   string          `json:"receipt_date"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
}

func (h *Handler) createReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.CreateReceipt(r.Context(), app.CreateReceiptRequest{
		CompanyID:     pathParam(r, "companyID"),
		ReceiptNumber: req.ReceiptNumber,
		InvoiceNumber: req.InvoiceNumber,
		CustomerName:  req.CustomerName,
		ReceiptDate:   req.ReceiptDate,
		AmountPaid:    req.AmountPaid,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(res.Receipt)
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetReceipt(r.Context(), pathParam(r, "companyID"), pathParam(r, "receiptNumber"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Receipt)
}

func (h *Handler) listReceipts(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListReceipts(r.Context(), pathParam(r, "companyID"), monthsParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Receipts)
}

func (h *Handler) deleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteReceipt(r.Context(), pathParam(r, "companyID"), pathParam(r, "receiptNumber")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Expenses ──────────────────────────────────────────────────────────────────

type expensePayload struct {
	Month       string          `json:"month"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Day         *int            `json:"day"`
}

func (p expensePayload) toRequest(companyID string) app.ExpenseRequest {
	return app.ExpenseRequest{
		CompanyID:   companyID,
		Month:       p.Month,
		Category:    core.ExpenseCategory(p.Category),
		Amount:      p.Amount,
		Description: p.Description,
		Day:         p.Day,
	}
}

func (h *Handler) addExpense(w http.ResponseWriter, r *http.Request) {
	var req expensePayload
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.AddExpense(r.Context(), req.toRequest(pathParam(r, "companyID")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(res.Expense)
}

func (h *Handler) upsertDailyExpense(w http.ResponseWriter, r *http.Request) {
	var req expensePayload
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.UpsertDailyExpense(r.Context(), req.toRequest(pathParam(r, "companyID")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Expense)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListExpenses(r.Context(), pathParam(r, "companyID"), r.URL.Query().Get("month"), categoryParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Expenses)
}

func (h *Handler) purgeExpenses(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.PurgeExpenses(r.Context(), pathParam(r, "companyID"), r.URL.Query().Get("month"), categoryParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	type response struct {
		Removed int `json:"removed"`
	}
	writeJSON(w, response{Removed: res.Removed})
}

// ── Reports ───────────────────────────────────────────────────────────────────

func (h *Handler) monthlySummary(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.MonthlySummary(r.Context(), pathParam(r, "companyID"), r.URL.Query().Get("month"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) dailyRevenue(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DailyRevenue(r.Context(), pathParam(r, "companyID"), r.URL.Query().Get("month"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) dailyExpenses(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DailyExpenses(r.Context(), pathParam(r, "companyID"), r.URL.Query().Get("month"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// ── Admin ─────────────────────────────────────────────────────────────────────

func (h *Handler) adminListCompanies(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.AdminListCompanies(r.Context(), adminSecret(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.Companies)
}

func (h *Handler) adminDeleteCompany(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.AdminDeleteCompany(r.Context(), adminSecret(r), pathParam(r, "companyID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminScanDuplicates(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.AdminScanDuplicates(r.Context(), adminSecret(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) adminMigrate(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.AdminMigrate(r.Context(), adminSecret(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.AdminStats(r.Context(), adminSecret(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// pathParam extracts a URL parameter, unescaping it so identifiers containing
// a slash can be sent percent-encoded (company ids embed one).
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// monthsParam reads the optional ?months= window; 0 selects the default.
func monthsParam(r *http.Request) int {
	v := r.URL.Query().Get("months")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// categoryParam reads the optional ?category= filter.
func categoryParam(r *http.Request) *core.ExpenseCategory {
	v := r.URL.Query().Get("category")
	if v == "" {
		return nil
	}
	c := core.ExpenseCategory(v)
	return &c
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
