package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RegisterCompanyInput carries the registration fields. Optional fields are
// pointers so absent and empty stay distinguishable.
type RegisterCompanyInput struct {
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
	BusinessType    BusinessType
}

// CompanyPatch is a merge-patch: nil keeps the stored value, a pointer to an
// empty string clears it. Image references follow the same rule, so a logo
// or signature is replaced only when a new asset reference is supplied or
// explicitly cleared.
type CompanyPatch struct {
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
	BusinessType    *BusinessType
}

// CompanyService implements registration, profile updates and cascading
// company removal over the dual-store adapter.
type CompanyService struct {
	companies CompanyRepo
	invoices  InvoiceRepo
	receipts  ReceiptRepo
	expenses  ExpenseRepo
	idgen     *IDGenerator
	conflicts *ConflictDetector
	vault     *DocumentVault
	// writeMu serializes the check-then-persist window of Register and
	// UpdateProfile. Both the conflict check and the id collision check read
	// the stores before the write lands; without the lock two concurrent
	// registrations can pass both checks with the same candidate and the
	// second upsert silently overwrites the first.
	writeMu sync.Mutex
	log     zerolog.Logger
}

func NewCompanyService(companies CompanyRepo, invoices InvoiceRepo, receipts ReceiptRepo,
	expenses ExpenseRepo, vault *DocumentVault, log zerolog.Logger) *CompanyService {
	return &CompanyService{
		companies: companies,
		invoices:  invoices,
		receipts:  receipts,
		expenses:  expenses,
		idgen:     NewIDGenerator(companies),
		conflicts: NewConflictDetector(companies),
		vault:     vault,
		log:       log.With().Str("component", "companies").Logger(),
	}
}

func validBusinessType(b BusinessType) bool {
	switch b {
	case BusinessPrintingPress, BusinessManufacturing, BusinessGeneralMerchandise:
		return true
	}
	return false
}

// Register creates a company with a generated identifier. The conflict check
// runs before the identifier is generated so a rejected registration never
// consumes an id.
func (s *CompanyService) Register(ctx context.Context, in RegisterCompanyInput) (*Company, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	businessType := in.BusinessType
	if businessType == "" {
		businessType = BusinessGeneralMerchandise
	}
	if !validBusinessType(businessType) {
		return nil, &ValidationError{Field: "businessType", Message: fmt.Sprintf("unknown value %q", in.BusinessType)}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conflicts.Check(ctx, candidateFields(name, in.Email, in.Phone, in.AccountNumber), ""); err != nil {
		return nil, err
	}

	id, err := s.idgen.Generate(ctx, name, businessType)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	c := Company{
		ID:              id,
		Name:            name,
		Address:         in.Address,
		Email:           in.Email,
		Phone:           in.Phone,
		LogoPath:        in.LogoPath,
		SignaturePath:   in.SignaturePath,
		BrandColor:      in.BrandColor,
		Country:         in.Country,
		CurrencySymbol:  in.CurrencySymbol,
		CurrencyCode:    in.CurrencyCode,
		BankName:        in.BankName,
		AccountName:     in.AccountName,
		AccountNumber:   in.AccountNumber,
		InvoiceTemplate: in.InvoiceTemplate,
		ReceiptTemplate: in.ReceiptTemplate,
		Terms:           in.Terms,
		BusinessType:    businessType,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.companies.Upsert(ctx, c); err != nil {
		return nil, fmt.Errorf("persist company: %w", err)
	}
	s.log.Info().Str("company_id", id).Str("name", name).Msg("company registered")
	return &c, nil
}

// Get returns the merged company record or a NotFoundError.
func (s *CompanyService) Get(ctx context.Context, id string) (*Company, error) {
	c, err := s.companies.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &NotFoundError{Kind: "company", Key: id}
	}
	return c, nil
}

// List returns every company across both stores.
func (s *CompanyService) List(ctx context.Context) ([]Company, error) {
	return s.companies.List(ctx)
}

// UpdateProfile applies a merge-patch to the company, re-running the
// conflict detector against the patched unique fields with the company
// itself excluded.
func (s *CompanyService) UpdateProfile(ctx context.Context, id string, patch CompanyPatch) (*Company, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, &ValidationError{Field: "name", Message: "cannot be cleared"}
		}
		c.Name = name
	}
	if patch.BusinessType != nil {
		if !validBusinessType(*patch.BusinessType) {
			return nil, &ValidationError{Field: "businessType", Message: fmt.Sprintf("unknown value %q", *patch.BusinessType)}
		}
		c.BusinessType = *patch.BusinessType
	}
	applyPatch(&c.Address, patch.Address)
	applyPatch(&c.Email, patch.Email)
	applyPatch(&c.Phone, patch.Phone)
	applyPatch(&c.LogoPath, patch.LogoPath)
	applyPatch(&c.SignaturePath, patch.SignaturePath)
	applyPatch(&c.BrandColor, patch.BrandColor)
	applyPatch(&c.Country, patch.Country)
	applyPatch(&c.CurrencySymbol, patch.CurrencySymbol)
	applyPatch(&c.CurrencyCode, patch.CurrencyCode)
	applyPatch(&c.BankName, patch.BankName)
	applyPatch(&c.AccountName, patch.AccountName)
	applyPatch(&c.AccountNumber, patch.AccountNumber)
	applyPatch(&c.InvoiceTemplate, patch.InvoiceTemplate)
	applyPatch(&c.ReceiptTemplate, patch.ReceiptTemplate)
	applyPatch(&c.Terms, patch.Terms)

	if err := s.conflicts.Check(ctx, candidateFields(c.Name, c.Email, c.Phone, c.AccountNumber), id); err != nil {
		return nil, err
	}

	c.UpdatedAt = time.Now()
	if err := s.companies.Upsert(ctx, *c); err != nil {
		return nil, fmt.Errorf("persist company update: %w", err)
	}
	return c, nil
}

// DeleteCascade removes the company and everything it owns: receipts (and
// their rendered files), invoices (and theirs), expenses, then the company
// record. Sub-operation failures are logged and counted, not fatal.
func (s *CompanyService) DeleteCascade(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	receipts, err := s.receipts.List(ctx, id, time.Time{}, 0)
	if err != nil {
		s.log.Warn().Err(err).Str("company_id", id).Msg("listing receipts for cascade failed")
	}
	for _, r := range receipts {
		_ = s.vault.Remove(r.DocumentPath)
	}
	if _, err := s.receipts.DeleteByCompany(ctx, id); err != nil {
		return fmt.Errorf("cascade receipts: %w", err)
	}

	invoices, err := s.invoices.List(ctx, id, time.Time{}, 0)
	if err != nil {
		s.log.Warn().Err(err).Str("company_id", id).Msg("listing invoices for cascade failed")
	}
	for _, inv := range invoices {
		_ = s.vault.Remove(inv.DocumentPath)
	}
	if _, err := s.invoices.DeleteByCompany(ctx, id); err != nil {
		return fmt.Errorf("cascade invoices: %w", err)
	}

	if _, err := s.expenses.DeleteByCompany(ctx, id); err != nil {
		return fmt.Errorf("cascade expenses: %w", err)
	}

	if err := s.companies.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	s.log.Info().Str("company_id", id).Msg("company deleted with cascade")
	return nil
}

func applyPatch(dst **string, src *string) {
	if src == nil {
		return
	}
	if *src == "" {
		*dst = nil
		return
	}
	v := *src
	*dst = &v
}

func candidateFields(name string, email, phone, accountNumber *string) UniqueFields {
	cand := UniqueFields{Name: name}
	if email != nil {
		cand.Email = *email
	}
	if phone != nil {
		cand.Phone = *phone
	}
	if accountNumber != nil {
		cand.AccountNumber = *accountNumber
	}
	return cand
}
