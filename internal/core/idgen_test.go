package core_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"bizbooks/internal/core"
)

var idPattern = regexp.MustCompile(`^[A-Z0-9X]{3}/(PP|MC|GM)-\d{6}$`)

func TestCandidate_Format(t *testing.T) {
	cases := []struct {
		name         string
		businessType core.BusinessType
		wantPrefix   string
	}{
		{"Acme Industries", core.BusinessManufacturing, "ACM/MC-"},
		{"Bee Prints", core.BusinessPrintingPress, "BEE/PP-"},
		{"General Store", core.BusinessGeneralMerchandise, "GEN/GM-"},
		// Non-alphanumerics are skipped, not replaced.
		{"A & B Traders", core.BusinessGeneralMerchandise, "ABT/GM-"},
		// Short names pad with the placeholder.
		{"Jo", core.BusinessGeneralMerchandise, "JOX/GM-"},
		{"", core.BusinessGeneralMerchandise, "XXX/GM-"},
		// Digits count.
		{"7up Depot", core.BusinessGeneralMerchandise, "7UP/GM-"},
	}
	for _, tc := range cases {
		id := core.Candidate(tc.name, tc.businessType)
		if !idPattern.MatchString(id) {
			t.Errorf("Candidate(%q): %q does not match the id pattern", tc.name, id)
		}
		if got := id[:len(tc.wantPrefix)]; got != tc.wantPrefix {
			t.Errorf("Candidate(%q): prefix %q, want %q", tc.name, got, tc.wantPrefix)
		}
	}
}

func TestGenerate_ReturnsFreeID(t *testing.T) {
	repo := newMemCompanyRepo()
	gen := core.NewIDGenerator(repo)

	id, err := gen.Generate(context.Background(), "Acme Industries", core.BusinessManufacturing)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !idPattern.MatchString(id) {
		t.Errorf("generated id %q does not match the pattern", id)
	}
}

func TestGenerate_ExhaustsAttempts(t *testing.T) {
	repo := newMemCompanyRepo()
	repo.forceIDExists = true
	gen := core.NewIDGenerator(repo)

	_, err := gen.Generate(context.Background(), "Acme", core.BusinessManufacturing)
	if !errors.Is(err, core.ErrIDExhausted) {
		t.Fatalf("want ErrIDExhausted, got %v", err)
	}
}
