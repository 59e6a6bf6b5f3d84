package core_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bizbooks/internal/core"

	"github.com/rs/zerolog"
)

func TestVault_SaveAndRemove(t *testing.T) {
	root := t.TempDir()
	vault := core.NewDocumentVault(root, zerolog.Nop())

	path, err := vault.Save(core.DocInvoice, "ACM/MC-000001_INV-7", []byte("doc"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasPrefix(path, core.PublicFilePrefix+"/invoices/") {
		t.Errorf("public path %q lacks the invoices prefix", path)
	}
	if strings.Contains(strings.TrimPrefix(path, core.PublicFilePrefix+"/invoices/"), "/") {
		t.Errorf("sanitized filename still contains a separator: %q", path)
	}

	onDisk := filepath.Join(root, strings.TrimPrefix(path, core.PublicFilePrefix+"/"))
	if _, err := os.Stat(onDisk); err != nil {
		t.Fatalf("document not on disk at %s: %v", onDisk, err)
	}

	if err := vault.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
		t.Errorf("document still on disk after Remove")
	}
}

// Company ids embed a separator before the shared type-code-and-suffix part.
// The sanitizer must keep the name prefix, or two companies whose ids differ
// only there would write to the same file.
func TestVault_SaveKeepsCompanyPrefixDistinct(t *testing.T) {
	root := t.TempDir()
	vault := core.NewDocumentVault(root, zerolog.Nop())

	first, err := vault.Save(core.DocInvoice, "ACM/GM-123456_INV-1", []byte("first"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second, err := vault.Save(core.DocInvoice, "XYZ/GM-123456_INV-1", []byte("second"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if first == second {
		t.Fatalf("documents for different companies collided on %q", first)
	}
	for path, want := range map[string]string{first: "first", second: "second"} {
		data, err := os.ReadFile(filepath.Join(root, strings.TrimPrefix(path, core.PublicFilePrefix+"/")))
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if string(data) != want {
			t.Errorf("%s holds %q, want %q", path, data, want)
		}
	}
}

func TestVault_SaveForcesPDFSuffix(t *testing.T) {
	vault := core.NewDocumentVault(t.TempDir(), zerolog.Nop())
	path, err := vault.Save(core.DocReceipt, "receipt one", []byte("doc"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !strings.HasSuffix(path, ".pdf") {
		t.Errorf("path %q lacks .pdf suffix", path)
	}
}

func TestVault_RemoveMissingIsNotAnError(t *testing.T) {
	vault := core.NewDocumentVault(t.TempDir(), zerolog.Nop())
	if err := vault.Remove(core.PublicFilePrefix + "/invoices/gone.pdf"); err != nil {
		t.Fatalf("Remove of missing file: %v", err)
	}
	if err := vault.Remove(""); err != nil {
		t.Fatalf("Remove of empty path: %v", err)
	}
}

func TestVault_RemoveRefusesEscape(t *testing.T) {
	vault := core.NewDocumentVault(t.TempDir(), zerolog.Nop())
	if err := vault.Remove(core.PublicFilePrefix + "/../outside.pdf"); err == nil {
		t.Fatal("expected error for path escaping the vault")
	}
}
