package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverageRating(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   *float64
	}{
		{"no ratings", nil, nil},
		{"empty slice", []int{}, nil},
		{"single", []int{3}, ptr(3)},
		{"half", []int{4, 5}, ptr(4.5)},
		{"thirds round to two decimals", []int{1, 2, 2}, ptr(1.67)},
		{"all fives", []int{5, 5, 5, 5}, ptr(5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AverageRating(tt.scores)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestAverageFromTotalsZeroCount(t *testing.T) {
	assert.Nil(t, AverageFromTotals(0, 0))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("seller")
	require.NoError(t, err)
	assert.Equal(t, RoleSeller, r)

	r, err = ParseRole("customer")
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, r)

	for _, bad := range []string{"", "admin", "Seller", "customer "} {
		_, err := ParseRole(bad)
		assert.Error(t, err, bad)
	}
}

func ptr(f float64) *float64 { return &f }
