package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bizbooks/internal/adapters/web"
	"bizbooks/internal/app"
	"bizbooks/internal/core"

	"github.com/rs/zerolog"
)

// stubService lets each test script only the methods it exercises; everything
// else fails loudly.
type stubService struct {
	registerCompany func(ctx context.Context, req app.RegisterCompanyRequest) (*app.CompanyResult, error)
	getCompany      func(ctx context.Context, companyID string) (*app.CompanyResult, error)
	adminAuthorize  func(secret string) error
	adminStats      func(ctx context.Context, secret string) (*core.StoreStats, error)
	primaryUp       bool
}

var errNotScripted = errors.New("not scripted")

func (s *stubService) RegisterCompany(ctx context.Context, req app.RegisterCompanyRequest) (*app.CompanyResult, error) {
	if s.registerCompany == nil {
		return nil, errNotScripted
	}
	return s.registerCompany(ctx, req)
}

func (s *stubService) GetCompany(ctx context.Context, companyID string) (*app.CompanyResult, error) {
	if s.getCompany == nil {
		return nil, errNotScripted
	}
	return s.getCompany(ctx, companyID)
}

func (s *stubService) UpdateCompany(context.Context, string, app.UpdateCompanyRequest) (*app.CompanyResult, error) {
	return nil, errNotScripted
}

func (s *stubService) CreateInvoice(context.Context, app.CreateInvoiceRequest) (*app.InvoiceResult, error) {
	return nil, errNotScripted
}

func (s *stubService) GetInvoice(context.Context, string, string) (*app.InvoiceResult, error) {
	return nil, errNotScripted
}

func (s *stubService) ListInvoices(context.Context, string, int) (*app.InvoiceListResult, error) {
	return nil, errNotScripted
}

func (s *stubService) DeleteInvoice(context.Context, string, string) (*core.InvoiceDeleteResult, error) {
	return nil, errNotScripted
}

func (s *stubService) CreateReceipt(context.Context, app.CreateReceiptRequest) (*app.ReceiptResult, error) {
	return nil, errNotScripted
}

func (s *stubService) GetReceipt(context.Context, string, string) (*app.ReceiptResult, error) {
	return nil, errNotScripted
}

func (s *stubService) ListReceipts(context.Context, string, int) (*app.ReceiptListResult, error) {
	return nil, errNotScripted
}

func (s *stubService) DeleteReceipt(context.Context, string, string) error { return errNotScripted }

func (s *stubService) DeleteReceiptsByInvoice(context.Context, string, string) (*core.BulkDeleteResult, error) {
	return nil, errNotScripted
}

func (s *stubService) AddExpense(context.Context, app.ExpenseRequest) (*app.ExpenseResult, error) {
	return nil, errNotScripted
}

func (s *stubService) UpsertDailyExpense(context.Context, app.ExpenseRequest) (*app.ExpenseResult, error) {
	return nil, errNotScripted
}

func (s *stubService) ListExpenses(context.Context, string, string, *core.ExpenseCategory) (*app.ExpenseListResult, error) {
	return nil, errNotScripted
}

func (s *stubService) PurgeExpenses(context.Context, string, string, *core.ExpenseCategory) (*app.PurgeResult, error) {
	return nil, errNotScripted
}

func (s *stubService) MonthlySummary(context.Context, string, string) (*core.MonthlySummary, error) {
	return nil, errNotScripted
}

func (s *stubService) DailyRevenue(context.Context, string, string) (*core.DailySeries, error) {
	return nil, errNotScripted
}

func (s *stubService) DailyExpenses(context.Context, string, string) (*core.DailySeries, error) {
	return nil, errNotScripted
}

func (s *stubService) PrimaryReachable(context.Context) bool { return s.primaryUp }

func (s *stubService) AdminAuthorize(secret string) error {
	if s.adminAuthorize == nil {
		return errNotScripted
	}
	return s.adminAuthorize(secret)
}

func (s *stubService) AdminListCompanies(context.Context, string) (*app.CompanyListResult, error) {
	return nil, errNotScripted
}

func (s *stubService) AdminDeleteCompany(context.Context, string, string) error {
	return errNotScripted
}

func (s *stubService) AdminScanDuplicates(context.Context, string) ([]core.DuplicateRecord, error) {
	return nil, errNotScripted
}

func (s *stubService) AdminMigrate(context.Context, string) (*core.MigrationReport, error) {
	return nil, errNotScripted
}

func (s *stubService) AdminStats(ctx context.Context, secret string) (*core.StoreStats, error) {
	if s.adminStats == nil {
		return nil, errNotScripted
	}
	return s.adminStats(ctx, secret)
}

func newTestHandler(t *testing.T, svc app.ApplicationService) http.Handler {
	t.Helper()
	return web.NewHandler(svc, "*", "test-jwt-secret", "test-admin-secret", t.TempDir(), zerolog.Nop())
}

func doRequest(t *testing.T, h http.Handler, method, path, body string, mod func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	if mod != nil {
		mod(r)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (code string, fields []string) {
	t.Helper()
	var resp struct {
		Code   string   `json:"code"`
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp.Code, resp.Fields
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantFields []string
	}{
		{"validation", &core.ValidationError{Field: "name", Message: "required"}, http.StatusBadRequest, "VALIDATION", nil},
		{"not found", &core.NotFoundError{Kind: "company", Key: "X"}, http.StatusNotFound, "NOT_FOUND", nil},
		{"conflict carries fields", &core.ConflictError{Fields: []string{"email", "phone"}}, http.StatusConflict, "CONFLICT", []string{"email", "phone"}},
		{"forbidden", core.ErrForbidden, http.StatusForbidden, "FORBIDDEN", nil},
		{"id space exhausted", core.ErrIDExhausted, http.StatusServiceUnavailable, "ID_EXHAUSTED", nil},
		{"primary unavailable", core.ErrPrimaryUnavailable, http.StatusServiceUnavailable, "PRIMARY_UNAVAILABLE", nil},
		{"unexpected error is opaque", errors.New("pq: connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{
				getCompany: func(context.Context, string) (*app.CompanyResult, error) { return nil, tc.err },
			}
			w := doRequest(t, newTestHandler(t, svc), http.MethodGet, "/api/companies/ACM%2FGM-000001", "", nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tc.wantStatus, w.Body.String())
			}
			code, fields := decodeError(t, w)
			if code != tc.wantCode {
				t.Errorf("code = %s, want %s", code, tc.wantCode)
			}
			if len(fields) != len(tc.wantFields) {
				t.Errorf("fields = %v, want %v", fields, tc.wantFields)
			}
		})
	}
}

func TestPathParamsAreUnescaped(t *testing.T) {
	var gotID string
	svc := &stubService{
		getCompany: func(_ context.Context, companyID string) (*app.CompanyResult, error) {
			gotID = companyID
			return &app.CompanyResult{Company: &core.Company{ID: companyID, Name: "Acme"}}, nil
		},
	}
	w := doRequest(t, newTestHandler(t, svc), http.MethodGet, "/api/companies/ACM%2FGM-000001", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if gotID != "ACM/GM-000001" {
		t.Errorf("company id = %q, want the slash restored", gotID)
	}
}

func TestRegisterCompany(t *testing.T) {
	svc := &stubService{
		registerCompany: func(_ context.Context, req app.RegisterCompanyRequest) (*app.CompanyResult, error) {
			if req.Name != "Acme" || req.BusinessType != "manufacturing" {
				t.Errorf("request = %+v, want the decoded payload", req)
			}
			return &app.CompanyResult{Company: &core.Company{ID: "ACM/MC-000001", Name: req.Name}}, nil
		},
	}
	h := newTestHandler(t, svc)

	w := doRequest(t, h, http.MethodPost, "/api/companies",
		`{"name":"Acme","business_type":"manufacturing"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	var got core.Company
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "ACM/MC-000001" {
		t.Errorf("id = %s, want the generated one", got.ID)
	}

	t.Run("malformed body is a bad request", func(t *testing.T) {
		w := doRequest(t, h, http.MethodPost, "/api/companies", `{"name":`, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	w := doRequest(t, newTestHandler(t, &stubService{primaryUp: true}), http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Status  string `json:"status"`
		Primary bool   `json:"primary"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || !resp.Primary {
		t.Errorf("health = %+v, want ok with primary up", resp)
	}
}

func TestAdminAuth(t *testing.T) {
	statsCalled := func(gotSecret *string) *stubService {
		return &stubService{
			adminAuthorize: func(secret string) error {
				if secret != "test-admin-secret" {
					return core.ErrForbidden
				}
				return nil
			},
			adminStats: func(_ context.Context, secret string) (*core.StoreStats, error) {
				*gotSecret = secret
				return &core.StoreStats{PrimaryReachable: true}, nil
			},
		}
	}

	t.Run("no credentials is unauthorized", func(t *testing.T) {
		var secret string
		w := doRequest(t, newTestHandler(t, statsCalled(&secret)), http.MethodGet, "/api/admin/stats", "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
		if code, _ := decodeError(t, w); code != "UNAUTHORIZED" {
			t.Errorf("code = %s, want UNAUTHORIZED", code)
		}
	})

	t.Run("header secret is forwarded to the service", func(t *testing.T) {
		var secret string
		w := doRequest(t, newTestHandler(t, statsCalled(&secret)), http.MethodGet, "/api/admin/stats", "",
			func(r *http.Request) { r.Header.Set("X-Admin-Secret", "whatever-was-sent") })
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		if secret != "whatever-was-sent" {
			t.Errorf("service saw secret %q; the header must pass through unverified", secret)
		}
	})

	t.Run("wrong login secret is forbidden", func(t *testing.T) {
		var secret string
		w := doRequest(t, newTestHandler(t, statsCalled(&secret)), http.MethodPost, "/api/admin/session",
			`{"secret":"wrong"}`, nil)
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
	})

	t.Run("session cookie authenticates follow-up calls", func(t *testing.T) {
		var secret string
		h := newTestHandler(t, statsCalled(&secret))

		login := doRequest(t, h, http.MethodPost, "/api/admin/session", `{"secret":"test-admin-secret"}`, nil)
		if login.Code != http.StatusNoContent {
			t.Fatalf("login status = %d, body %s", login.Code, login.Body.String())
		}
		cookies := login.Result().Cookies()
		if len(cookies) == 0 {
			t.Fatal("no session cookie set")
		}

		w := doRequest(t, h, http.MethodGet, "/api/admin/stats", "", func(r *http.Request) {
			for _, c := range cookies {
				r.AddCookie(c)
			}
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		if secret != "test-admin-secret" {
			t.Errorf("service saw secret %q, want the configured one restored from the session", secret)
		}
	})

	t.Run("garbage cookie is unauthorized", func(t *testing.T) {
		var secret string
		w := doRequest(t, newTestHandler(t, statsCalled(&secret)), http.MethodGet, "/api/admin/stats", "",
			func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "admin_token", Value: "not.a.jwt"})
			})
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	})
}

func TestRequestIDEchoedInErrors(t *testing.T) {
	svc := &stubService{
		getCompany: func(context.Context, string) (*app.CompanyResult, error) {
			return nil, &core.NotFoundError{Kind: "company", Key: "X"}
		},
	}
	w := doRequest(t, newTestHandler(t, svc), http.MethodGet, "/api/companies/X", "",
		func(r *http.Request) { r.Header.Set("X-Request-ID", "req-12345") })
	var resp struct {
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RequestID != "req-12345" {
		t.Errorf("request_id = %q, want the supplied header echoed", resp.RequestID)
	}
}
