package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bizbooks/internal/core"

	"github.com/rs/zerolog"
)

// A nil pool makes Health report the primary unreachable, so these tests
// exercise the fallback-only path every adapter must survive.
func newFallbackCompanyStore(t *testing.T) *CompanyStore {
	t.Helper()
	health := NewHealth(nil, zerolog.Nop())
	return NewCompanyStore(nil, health, filepath.Join(t.TempDir(), "companies.json"), zerolog.Nop())
}

func testCompany(id, name string) core.Company {
	return core.Company{
		ID:           id,
		Name:         name,
		BusinessType: core.BusinessGeneralMerchandise,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func TestCompanyStore_UpsertAndFindWithoutPrimary(t *testing.T) {
	ctx := context.Background()
	s := newFallbackCompanyStore(t)

	c := testCompany("ACM/GM-000001", "Acme")
	email := "acme@example.com"
	c.Email = &email
	if err := s.Upsert(ctx, c); err != nil {
		t.Fatalf("Upsert with primary down: %v", err)
	}

	got, err := s.FindByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got == nil || got.Name != "Acme" {
		t.Fatalf("got %+v, want the stored company", got)
	}
	if got.Email == nil || *got.Email != email {
		t.Errorf("email = %v, want %s", got.Email, email)
	}

	missing, err := s.FindByID(ctx, "XXX/GM-000000")
	if err != nil {
		t.Fatalf("FindByID on missing id: %v", err)
	}
	if missing != nil {
		t.Errorf("got %+v, want nil for unknown id", missing)
	}
}

func TestCompanyStore_UpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := newFallbackCompanyStore(t)

	c := testCompany("ACM/GM-000001", "Acme")
	if err := s.Upsert(ctx, c); err != nil {
		t.Fatal(err)
	}
	c.Name = "Acme Ltd"
	if err := s.Upsert(ctx, c); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list = %d companies, want 1 after replace", len(list))
	}
	if list[0].Name != "Acme Ltd" {
		t.Errorf("name = %q, want the replacement", list[0].Name)
	}
}

func TestCompanyStore_IDExists(t *testing.T) {
	ctx := context.Background()
	s := newFallbackCompanyStore(t)

	if err := s.Upsert(ctx, testCompany("ACM/GM-000001", "Acme")); err != nil {
		t.Fatal(err)
	}

	ok, err := s.IDExists(ctx, "ACM/GM-000001")
	if err != nil || !ok {
		t.Errorf("IDExists = %v, %v; want true", ok, err)
	}
	ok, err = s.IDExists(ctx, "ACM/GM-999999")
	if err != nil || ok {
		t.Errorf("IDExists = %v, %v; want false", ok, err)
	}
}

func TestCompanyStore_FindMatchingUniqueScansFallback(t *testing.T) {
	ctx := context.Background()
	s := newFallbackCompanyStore(t)

	phone := "0800-1"
	a := testCompany("AAA/GM-000001", "Alpha")
	a.Phone = &phone
	b := testCompany("BBB/GM-000001", "Beta")
	for _, c := range []core.Company{a, b} {
		if err := s.Upsert(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("matches another company's phone", func(t *testing.T) {
		got, err := s.FindMatchingUnique(ctx, core.UniqueFields{Phone: "0800-1"}, "BBB/GM-000001")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].ID != "AAA/GM-000001" {
			t.Errorf("matches = %v, want only Alpha", got)
		}
	})

	t.Run("excludes the candidate itself", func(t *testing.T) {
		got, err := s.FindMatchingUnique(ctx, core.UniqueFields{Name: "Alpha", Phone: "0800-1"}, "AAA/GM-000001")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("matches = %v, want none when excluding self", got)
		}
	})

	t.Run("empty fields match nothing", func(t *testing.T) {
		got, err := s.FindMatchingUnique(ctx, core.UniqueFields{}, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("matches = %v, want none for empty candidate", got)
		}
	})
}

func TestCompanyStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newFallbackCompanyStore(t)

	if err := s.Upsert(ctx, testCompany("ACM/GM-000001", "Acme")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "ACM/GM-000001"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	got, err := s.FindByID(ctx, "ACM/GM-000001")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("company still present after delete: %+v", got)
	}
}

func TestMergeCompany_PrimaryWinsFallbackFills(t *testing.T) {
	email := "new@example.com"
	phone := "0800-2"
	primary := &core.Company{ID: "ACM/GM-000001", Name: "Acme Ltd", Email: &email}
	fallback := &core.Company{ID: "ACM/GM-000001", Name: "Acme", Phone: &phone, BusinessType: core.BusinessManufacturing}

	merged := mergeCompany(primary, fallback)
	if merged.Name != "Acme Ltd" {
		t.Errorf("name = %q, want the primary value", merged.Name)
	}
	if merged.Email == nil || *merged.Email != email {
		t.Errorf("email = %v, want the primary value", merged.Email)
	}
	if merged.Phone == nil || *merged.Phone != phone {
		t.Errorf("phone = %v, want filled from the fallback", merged.Phone)
	}
	if merged.BusinessType != core.BusinessManufacturing {
		t.Errorf("business type = %s, want filled from the fallback", merged.BusinessType)
	}

	if got := mergeCompany(nil, fallback); got != fallback {
		t.Error("nil primary should return the fallback record")
	}
	if got := mergeCompany(primary, nil); got != primary {
		t.Error("nil fallback should return the primary record")
	}
}
