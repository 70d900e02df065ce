// Package refdata carries the versioned enum configuration used to
// normalize membership CSV values. The lists live in YAML rather than
// code so historical spellings can be added without touching the import
// services.
package refdata

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed enums.yaml
var enumsYAML []byte

const (
	KindSex           = "sex"
	KindSequence      = "sequence"
	KindParticipation = "participation"
	KindReceivedBy    = "received_by"
	KindRemovedBy     = "removed_by"
)

type document struct {
	Version int                            `yaml:"version"`
	Enums   map[string]map[string][]string `yaml:"enums"`
}

// Registry resolves raw CSV cell values to canonical enum values.
type Registry struct {
	version int
	kinds   map[string]map[string]string
	values  map[string][]string
}

var load = sync.OnceValue(func() *Registry {
	var doc document
	if err := yaml.Unmarshal(enumsYAML, &doc); err != nil {
		panic(fmt.Sprintf("refdata: parsing enums.yaml: %v", err))
	}

	r := &Registry{
		version: doc.Version,
		kinds:   make(map[string]map[string]string, len(doc.Enums)),
		values:  make(map[string][]string, len(doc.Enums)),
	}
	for kind, canon := range doc.Enums {
		lookup := make(map[string]string)
		values := make([]string, 0, len(canon))
		for canonical, aliases := range canon {
			values = append(values, canonical)
			lookup[normalizeValue(canonical)] = canonical
			for _, alias := range aliases {
				lookup[normalizeValue(alias)] = canonical
			}
		}
		sort.Strings(values)
		r.kinds[kind] = lookup
		r.values[kind] = values
	}
	return r
})

// Load returns the parsed registry. The embedded file is parsed once;
// a malformed file is a build defect and panics.
func Load() *Registry {
	return load()
}

func (r *Registry) Version() int {
	return r.version
}

// Canonical maps a raw cell value to its canonical enum value.
func (r *Registry) Canonical(kind, raw string) (string, bool) {
	lookup, ok := r.kinds[kind]
	if !ok {
		return "", false
	}
	norm := normalizeValue(raw)
	if norm == "" {
		return "", false
	}
	canonical, ok := lookup[norm]
	return canonical, ok
}

// Values lists the canonical values of one enum, sorted.
func (r *Registry) Values(kind string) []string {
	return r.values[kind]
}

func normalizeValue(s string) string {
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
