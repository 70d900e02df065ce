// Package refdata carries the versioned category-alias table that maps
// historical spreadsheet headers ("General Fund", "District Synod") to
// canonical giving category names. The table lives in YAML so new legacy
// spellings land without touching the resolver.
package refdata

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed category_aliases.yaml
var aliasesYAML []byte

type document struct {
	Version int               `yaml:"version"`
	Aliases map[string]string `yaml:"aliases"`
}

// Aliases resolves normalized header text to the canonical category name
// it has historically meant.
type Aliases struct {
	version int
	lookup  map[string]string
}

var load = sync.OnceValue(func() *Aliases {
	var doc document
	if err := yaml.Unmarshal(aliasesYAML, &doc); err != nil {
		panic(fmt.Sprintf("refdata: parsing category_aliases.yaml: %v", err))
	}

	a := &Aliases{
		version: doc.Version,
		lookup:  make(map[string]string, len(doc.Aliases)),
	}
	for alias, canonical := range doc.Aliases {
		a.lookup[NormalizeHeader(alias)] = strings.TrimSpace(canonical)
	}
	return a
})

// Load returns the parsed alias table. The embedded file is parsed once;
// a malformed file is a build defect and panics.
func Load() *Aliases {
	return load()
}

func (a *Aliases) Version() int {
	return a.version
}

// CategoryFor maps a raw header cell to the canonical category name it
// aliases, if any.
func (a *Aliases) CategoryFor(header string) (string, bool) {
	canonical, ok := a.lookup[NormalizeHeader(header)]
	return canonical, ok
}

// DefaultCategories returns the canonical category names new tenants
// start with, in display order. Every alias target in
// category_aliases.yaml is one of these.
func DefaultCategories() []string {
	return []string{"Current", "Mission", "Memorials", "Debt Reduction", "School", "Miscellaneous"}
}

// NormalizeHeader lowercases a header and collapses runs of whitespace
// and underscores to single spaces, matching how the CSV header resolver
// normalizes column names.
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) || r == '_' {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
