package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/category"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/giving"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/refdata"
	"github.com/dchoinie/church-membership-app-sub003/pkg/csvimport"
)

// maxFuzzyDistance caps how far a header may drift from a category name
// and still bind. One or two dropped letters is a typo; anything looser
// starts claiming unrelated columns.
const maxFuzzyDistance = 2

// amountColumn is one CSV column bound to a giving category.
type amountColumn struct {
	index    int
	header   string
	category uuid.UUID
}

// CategoryResolver binds amount-bearing CSV columns to the tenant's
// giving categories once per import, then resolves each row's cells into
// (category, amount) pairs. Binding order per column: the historical
// alias table first, then a case-insensitive exact name match, then a
// conservative fuzzy match. Columns that bind to nothing are ignored.
type CategoryResolver struct {
	columns []amountColumn
}

// NewCategoryResolver inspects every non-reserved header column.
// Reserved indexes are the columns the import already claimed for
// non-amount fields (date, envelope number, member id, ...).
func NewCategoryResolver(
	header *csvimport.Header,
	categories []category.Category,
	aliases *refdata.Aliases,
	reserved map[int]struct{},
) *CategoryResolver {
	byName := make(map[string]category.Category, len(categories))
	active := make([]category.Category, 0, len(categories))
	for _, c := range categories {
		if !c.Active() {
			continue
		}
		active = append(active, c)
		byName[refdata.NormalizeHeader(c.Name())] = c
	}

	r := &CategoryResolver{columns: make([]amountColumn, 0, header.Len())}
	for _, col := range header.Columns() {
		if _, taken := reserved[col.Index]; taken {
			continue
		}
		if col.Normalized == "" {
			continue
		}

		if canonical, ok := aliases.CategoryFor(col.Name); ok {
			if c, ok := byName[refdata.NormalizeHeader(canonical)]; ok {
				r.bind(col.Index, col.Name, c)
			}
			// An alias whose target category the tenant no longer has
			// stays unbound rather than guessing.
			continue
		}

		if c, ok := byName[col.Normalized]; ok {
			r.bind(col.Index, col.Name, c)
			continue
		}

		if c, ok := closestCategory(col.Normalized, active); ok {
			r.bind(col.Index, col.Name, c)
		}
	}
	return r
}

func (r *CategoryResolver) bind(index int, header string, c category.Category) {
	r.columns = append(r.columns, amountColumn{index: index, header: header, category: c.ID()})
}

// Bound reports how many columns resolved to a category.
func (r *CategoryResolver) Bound() int {
	return len(r.columns)
}

// ItemsFor resolves one row's amount cells. Blank and zero cells are
// skipped; a cell that is not a non-negative number fails the row. The
// returned reason is empty for a valid row and a row with no surviving
// pairs fails outright.
func (r *CategoryResolver) ItemsFor(row csvimport.Row) ([]giving.Item, string) {
	items := make([]giving.Item, 0, len(r.columns))
	for _, col := range r.columns {
		raw := row.Field(col.index)
		if raw == "" {
			continue
		}
		amount, err := ParseAmount(raw)
		if err != nil || amount.IsNegative() {
			return nil, fmt.Sprintf("amount for %q must be a non-negative number", col.header)
		}
		if amount.IsZero() {
			continue
		}
		items = append(items, giving.Item{CategoryID: col.category, Amount: amount})
	}
	if len(items) == 0 {
		return nil, "at least one amount is required"
	}
	return items, ""
}

// closestCategory fuzzy-matches a normalized header against the active
// category names. The lowest edit distance within maxFuzzyDistance wins;
// ties keep the first category in position order.
func closestCategory(normalized string, categories []category.Category) (category.Category, bool) {
	best := -1
	bestRank := maxFuzzyDistance + 1
	for i, c := range categories {
		name := refdata.NormalizeHeader(c.Name())
		rank := fuzzy.RankMatchNormalizedFold(normalized, name)
		if rank < 0 {
			rank = fuzzy.RankMatchNormalizedFold(name, normalized)
		}
		if rank < 0 || rank >= bestRank {
			continue
		}
		best = i
		bestRank = rank
	}
	if best < 0 {
		return category.Category{}, false
	}
	return categories[best], true
}

// ParseAmount parses a currency cell. Dollar signs, thousands commas and
// inner spaces are scrubbed first; accountant-style parentheses mean a
// negative value.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
