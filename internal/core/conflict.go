package core

import (
	"context"
	"fmt"
)

// CollidingFields returns the names of candidate unique fields whose values
// equal the company's values. A store match query can return a company that
// matched on one field while the candidate differs on another, so each field
// is compared individually here.
func CollidingFields(cand UniqueFields, c Company) []string {
	var fields []string
	if cand.Name != "" && c.Name == cand.Name {
		fields = append(fields, "name")
	}
	if cand.Email != "" && c.Email != nil && *c.Email == cand.Email {
		fields = append(fields, "email")
	}
	if cand.Phone != "" && c.Phone != nil && *c.Phone == cand.Phone {
		fields = append(fields, "phone")
	}
	if cand.AccountNumber != "" && c.AccountNumber != nil && *c.AccountNumber == cand.AccountNumber {
		fields = append(fields, "accountNumber")
	}
	return fields
}

// ConflictDetector enforces cross-store uniqueness of company name, email,
// phone and bank account number.
type ConflictDetector struct {
	companies CompanyRepo
}

func NewConflictDetector(companies CompanyRepo) *ConflictDetector {
	return &ConflictDetector{companies: companies}
}

// Check returns a ConflictError carrying every colliding field name, or nil
// when no candidate value is taken by another company. excludeID skips the
// company being updated so its own values never count as conflicts.
func (d *ConflictDetector) Check(ctx context.Context, cand UniqueFields, excludeID string) error {
	matches, err := d.companies.FindMatchingUnique(ctx, cand, excludeID)
	if err != nil {
		return fmt.Errorf("unique-field lookup: %w", err)
	}

	seen := make(map[string]bool)
	var fields []string
	for _, m := range matches {
		for _, f := range CollidingFields(cand, m) {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}
	if len(fields) > 0 {
		return &ConflictError{Fields: fields}
	}
	return nil
}
