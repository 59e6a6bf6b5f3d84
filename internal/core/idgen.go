package core

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"unicode"
)

// maxIDAttempts bounds the collision-retry loop. Six random digits give a
// million candidates per prefix, so hitting the ceiling means either the
// prefix space is effectively full or a store is misbehaving; the caller
// gets ErrIDExhausted and may retry the registration.
const maxIDAttempts = 25

const idPlaceholder = 'X'

// namePrefix builds the three-character prefix from the company name:
// the first three alphanumeric characters uppercased, padded with the
// placeholder when the name is absent or too short.
func namePrefix(name string) string {
	var b strings.Builder
	for _, r := range name {
		if b.Len() == 3 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	for b.Len() < 3 {
		b.WriteByte(idPlaceholder)
	}
	return b.String()
}

// IDGenerator produces human-readable company identifiers of the form
// NAME/TT-DDDDDD and guarantees the result exists in neither store.
type IDGenerator struct {
	companies CompanyRepo
}

func NewIDGenerator(companies CompanyRepo) *IDGenerator {
	return &IDGenerator{companies: companies}
}

// Candidate returns one identifier candidate without a collision check.
// Exposed for the generator tests.
func Candidate(name string, businessType BusinessType) string {
	return fmt.Sprintf("%s/%s-%06d", namePrefix(name), businessType.TypeCode(), rand.Intn(1_000_000))
}

// Generate returns an identifier not present in either store, or
// ErrIDExhausted once the attempt ceiling is hit.
func (g *IDGenerator) Generate(ctx context.Context, name string, businessType BusinessType) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := Candidate(name, businessType)
		taken, err := g.companies.IDExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("id collision check: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}
