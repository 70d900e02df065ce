package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/category"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/refdata"
	"github.com/dchoinie/church-membership-app-sub003/pkg/csvimport"
)

func testCategories(names ...string) []category.Category {
	tenantID := uuid.New()
	out := make([]category.Category, 0, len(names))
	for i, name := range names {
		out = append(out, category.New(
			tenantID,
			name,
			category.WithID(uuid.New()),
			category.WithPosition(i),
		))
	}
	return out
}

func categoryID(categories []category.Category, name string) uuid.UUID {
	for _, c := range categories {
		if c.Name() == name {
			return c.ID()
		}
	}
	return uuid.Nil
}

func TestCategoryResolver_BindsAliasedHeaders(t *testing.T) {
	categories := testCategories("Current", "Mission", "Memorials")
	header := csvimport.NewHeader([]string{"Date Given", "Envelope Number", "General Fund", "District Synod"})

	resolver := NewCategoryResolver(header, categories, refdata.Load(), map[int]struct{}{0: {}, 1: {}})
	require.Equal(t, 2, resolver.Bound())

	row := csvimport.Row{Line: 2, Fields: []string{"1/5/2025", "101", "50.00", "25.00"}}
	items, reason := resolver.ItemsFor(row)
	require.Empty(t, reason)
	require.Len(t, items, 2)
	assert.Equal(t, categoryID(categories, "Current"), items[0].CategoryID)
	assert.True(t, items[0].Amount.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, categoryID(categories, "Mission"), items[1].CategoryID)
	assert.True(t, items[1].Amount.Equal(decimal.RequireFromString("25.00")))
}

func TestCategoryResolver_BindsExactAndFuzzyHeaders(t *testing.T) {
	categories := testCategories("Current", "Mission")
	header := csvimport.NewHeader([]string{"Date", "current", "Mision"})

	resolver := NewCategoryResolver(header, categories, refdata.Load(), map[int]struct{}{0: {}})
	require.Equal(t, 2, resolver.Bound())

	row := csvimport.Row{Line: 2, Fields: []string{"1/5/2025", "10", "20"}}
	items, reason := resolver.ItemsFor(row)
	require.Empty(t, reason)
	require.Len(t, items, 2)
	assert.Equal(t, categoryID(categories, "Current"), items[0].CategoryID)
	assert.Equal(t, categoryID(categories, "Mission"), items[1].CategoryID)
}

func TestCategoryResolver_IgnoresUnboundColumns(t *testing.T) {
	categories := testCategories("Current")
	header := csvimport.NewHeader([]string{"Date", "Current", "Quarterly Pledge Balance"})

	resolver := NewCategoryResolver(header, categories, refdata.Load(), map[int]struct{}{0: {}})
	assert.Equal(t, 1, resolver.Bound())
}

func TestCategoryResolver_SkipsInactiveCategories(t *testing.T) {
	categories := testCategories("Current", "Mission")
	categories[1] = categories[1].SetActive(false)
	header := csvimport.NewHeader([]string{"Date", "Current", "Mission"})

	resolver := NewCategoryResolver(header, categories, refdata.Load(), map[int]struct{}{0: {}})
	assert.Equal(t, 1, resolver.Bound())
}

func TestCategoryResolver_AliasWithoutTargetStaysUnbound(t *testing.T) {
	// "School" is a known alias target, but this tenant has no School
	// category, so the column must not bind to anything else.
	categories := testCategories("Current")
	header := csvimport.NewHeader([]string{"Date", "Current", "School"})

	resolver := NewCategoryResolver(header, categories, refdata.Load(), map[int]struct{}{0: {}})
	assert.Equal(t, 1, resolver.Bound())
}

func TestCategoryResolver_ItemsForSkipsBlankAndZero(t *testing.T) {
	categories := testCategories("Current", "Mission", "Memorials")
	header := csvimport.NewHeader([]string{"Current", "Mission", "Memorials"})

	resolver := NewCategoryResolver(header, categories, refdata.Load(), nil)
	require.Equal(t, 3, resolver.Bound())

	row := csvimport.Row{Line: 3, Fields: []string{"50.00", "0", ""}}
	items, reason := resolver.ItemsFor(row)
	require.Empty(t, reason)
	require.Len(t, items, 1)
	assert.Equal(t, categoryID(categories, "Current"), items[0].CategoryID)
	assert.True(t, items[0].Amount.Equal(decimal.RequireFromString("50.00")))
}

func TestCategoryResolver_ItemsForRejectsNegative(t *testing.T) {
	categories := testCategories("Current")
	header := csvimport.NewHeader([]string{"Current"})

	resolver := NewCategoryResolver(header, categories, refdata.Load(), nil)

	row := csvimport.Row{Line: 2, Fields: []string{"-5.00"}}
	_, reason := resolver.ItemsFor(row)
	assert.Contains(t, reason, "non-negative")
	assert.Contains(t, reason, "Current")
}

func TestCategoryResolver_ItemsForRejectsGarbage(t *testing.T) {
	categories := testCategories("Current")
	header := csvimport.NewHeader([]string{"Current"})

	resolver := NewCategoryResolver(header, categories, refdata.Load(), nil)

	row := csvimport.Row{Line: 2, Fields: []string{"abc"}}
	_, reason := resolver.ItemsFor(row)
	assert.Contains(t, reason, "non-negative")
}

func TestCategoryResolver_ItemsForRequiresAtLeastOneAmount(t *testing.T) {
	categories := testCategories("Current", "Mission")
	header := csvimport.NewHeader([]string{"Current", "Mission"})

	resolver := NewCategoryResolver(header, categories, refdata.Load(), nil)

	row := csvimport.Row{Line: 2, Fields: []string{"", "0.00"}}
	_, reason := resolver.ItemsFor(row)
	assert.Equal(t, "at least one amount is required", reason)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "50.00", want: "50"},
		{raw: "$1,234.56", want: "1234.56"},
		{raw: "  $ 10 ", want: "10"},
		{raw: "(50)", want: "-50"},
		{raw: "($12.50)", want: "-12.5"},
		{raw: "abc", wantErr: true},
		{raw: "$", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseAmount(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s, want %s", got, tc.want)
		})
	}
}
