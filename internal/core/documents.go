package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// PublicFilePrefix is the stable URL prefix under which rendered documents
// are served.
const PublicFilePrefix = "/files"

type DocumentKind string

const (
	DocInvoice DocumentKind = "invoices"
	DocReceipt DocumentKind = "receipts"
)

// DocumentVault owns the on-disk layout of rendered documents: it chooses
// the storage path for bytes produced by the rendering collaborator and maps
// public paths back to disk for removal.
type DocumentVault struct {
	root string
	log  zerolog.Logger
}

func NewDocumentVault(root string, log zerolog.Logger) *DocumentVault {
	return &DocumentVault{root: root, log: log.With().Str("component", "vault").Logger()}
}

// Root returns the generated-documents directory, for the static file server.
func (v *DocumentVault) Root() string { return v.root }

// sanitizeFilename keeps letters, digits, dots, dashes and underscores and
// replaces everything else, path separators included, so a suggested filename
// can never escape the vault directory. Separators are replaced rather than
// stripped: company identifiers embed one, and dropping the part before it
// would collide documents from different companies.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := b.String()
	if out == "" || strings.Trim(out, ".-_") == "" {
		out = "document"
	}
	if !strings.HasSuffix(strings.ToLower(out), ".pdf") {
		out += ".pdf"
	}
	return out
}

// Save writes the document bytes under <root>/<kind>/<sanitized> and returns
// the public path the file is served at.
func (v *DocumentVault) Save(kind DocumentKind, suggestedFilename string, data []byte) (string, error) {
	name := sanitizeFilename(suggestedFilename)
	dir := filepath.Join(v.root, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write document %s: %w", name, err)
	}
	return PublicFilePrefix + "/" + string(kind) + "/" + name, nil
}

// Remove deletes the document behind a public path. A missing file is not an
// error; any other failure is logged and reported so cascades can aggregate
// it without aborting.
func (v *DocumentVault) Remove(publicPath string) error {
	if publicPath == "" {
		return nil
	}
	rel := strings.TrimPrefix(publicPath, PublicFilePrefix+"/")
	rel = filepath.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to remove document outside vault: %s", publicPath)
	}
	err := os.Remove(filepath.Join(v.root, rel))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		v.log.Warn().Err(err).Str("path", publicPath).Msg("document removal failed")
		return err
	}
	return nil
}
