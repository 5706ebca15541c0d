// Package archive assembles the downloadable report package.
//
// A Package is owned by a single writer. Concurrent producers never touch it
// directly: receipt outcomes are funneled through a channel into Collect,
// which performs every insertion from one goroutine.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aequasi/expensify-to-excel/internal/domain"
)

// Package maps archive-relative paths to content. Paths are unique.
// A Package is not safe for concurrent use.
type Package struct {
	entries  map[string][]byte
	modified time.Time
}

// NewPackage creates an empty package whose entries carry the given modification time.
func NewPackage(modified time.Time) *Package {
	return &Package{
		entries:  make(map[string][]byte),
		modified: modified,
	}
}

// Add inserts a new entry. Inserting an existing path fails with ErrDuplicateEntry.
func (p *Package) Add(name string, data []byte) error {
	name = path.Clean(strings.TrimPrefix(name, "/"))
	if name == "." || name == ".." || strings.HasPrefix(name, "../") {
		return &domain.ErrValidation{Field: "path", Message: fmt.Sprintf("invalid archive path %q", name)}
	}
	if _, ok := p.entries[name]; ok {
		return &domain.ErrDuplicateEntry{Path: name}
	}
	p.entries[name] = data
	return nil
}

// Get returns the content stored at name.
func (p *Package) Get(name string) ([]byte, bool) {
	b, ok := p.entries[name]
	return b, ok
}

// Paths returns every entry path in lexical order.
func (p *Package) Paths() []string {
	paths := make([]string, 0, len(p.entries))
	for k := range p.entries {
		paths = append(paths, k)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of entries.
func (p *Package) Len() int {
	return len(p.entries)
}

// Serialize writes every entry into a DEFLATE-compressed zip stream.
func (p *Package) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, name := range p.Paths() {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: p.modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := w.Write(p.entries[name]); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
