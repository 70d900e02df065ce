package refdata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchoinie/church-membership-app-sub003/modules/giving/refdata"
)

func TestLoadVersion(t *testing.T) {
	a := refdata.Load()
	assert.Equal(t, 1, a.Version())
}

func TestCategoryFor(t *testing.T) {
	a := refdata.Load()

	cases := []struct {
		header string
		want   string
	}{
		{"amount", "Current"},
		{"Amount", "Current"},
		{"General Fund", "Current"},
		{"general_fund", "Current"},
		{"  current ", "Current"},
		{"District Synod", "Mission"},
		{"district   synod", "Mission"},
		{"mission", "Mission"},
		{"Memorials", "Memorials"},
		{"debt", "Debt Reduction"},
		{"Debt Reduction", "Debt Reduction"},
		{"school", "School"},
		{"Misc", "Miscellaneous"},
	}
	for _, tc := range cases {
		t.Run(tc.header, func(t *testing.T) {
			got, ok := a.CategoryFor(tc.header)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCategoryForMisses(t *testing.T) {
	a := refdata.Load()

	_, ok := a.CategoryFor("envelope number")
	assert.False(t, ok)

	_, ok = a.CategoryFor("")
	assert.False(t, ok)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "district synod", refdata.NormalizeHeader("  District__Synod "))
	assert.Equal(t, "general fund", refdata.NormalizeHeader("General\tFund"))
	assert.Equal(t, "", refdata.NormalizeHeader("   "))
}
