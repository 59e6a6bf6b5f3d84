package core

import (
	"context"
	"crypto/subtle"

	"github.com/rs/zerolog"
)

// AdminService gates the administrative operations behind a shared secret
// and delegates to the company service and the reconciler. The secret check
// runs before any other logic and uses a constant-time comparison.
type AdminService struct {
	secret     string
	companies  *CompanyService
	reconciler Reconciler
	log        zerolog.Logger
}

func NewAdminService(secret string, companies *CompanyService, reconciler Reconciler, log zerolog.Logger) *AdminService {
	return &AdminService{
		secret:     secret,
		companies:  companies,
		reconciler: reconciler,
		log:        log.With().Str("component", "admin").Logger(),
	}
}

// Authorize returns ErrForbidden unless the supplied secret matches the
// configured one. An unconfigured secret rejects everything.
func (s *AdminService) Authorize(secret string) error {
	if s.secret == "" {
		return ErrForbidden
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.secret)) != 1 {
		return ErrForbidden
	}
	return nil
}

func (s *AdminService) ListCompanies(ctx context.Context, secret string) ([]Company, error) {
	if err := s.Authorize(secret); err != nil {
		return nil, err
	}
	return s.companies.List(ctx)
}

func (s *AdminService) DeleteCompany(ctx context.Context, secret, companyID string) error {
	if err := s.Authorize(secret); err != nil {
		return err
	}
	s.log.Info().Str("company_id", companyID).Msg("admin company delete")
	return s.companies.DeleteCascade(ctx, companyID)
}

func (s *AdminService) ScanDuplicates(ctx context.Context, secret string) ([]DuplicateRecord, error) {
	if err := s.Authorize(secret); err != nil {
		return nil, err
	}
	return s.reconciler.ScanDuplicates(ctx)
}

func (s *AdminService) Migrate(ctx context.Context, secret string) (*MigrationReport, error) {
	if err := s.Authorize(secret); err != nil {
		return nil, err
	}
	s.log.Info().Msg("admin migration requested")
	return s.reconciler.Migrate(ctx)
}

func (s *AdminService) Stats(ctx context.Context, secret string) (*StoreStats, error) {
	if err := s.Authorize(secret); err != nil {
		return nil, err
	}
	return s.reconciler.Stats(ctx)
}
