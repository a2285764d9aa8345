package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippingPolicies(t *testing.T) {
	d := decimal.RequireFromString

	tests := []struct {
		name     string
		policy   ShippingPolicy
		subtotal string
		want     string
	}{
		{"free", FreeShipping{}, "5500", "0"},
		{"flat", FlatRate{Fee: d("99")}, "5500", "99"},
		{"flat negative fee", FlatRate{Fee: d("-10")}, "5500", "0"},
		{"free above reached", FreeAbove{Threshold: d("2000"), Fee: d("150")}, "2000", "0"},
		{"free above not reached", FreeAbove{Threshold: d("2000"), Fee: d("150")}, "1999.99", "150"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.Shipping(d(tt.subtotal))
			assert.True(t, d(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestFromConfig(t *testing.T) {
	fee := decimal.NewFromInt(50)
	threshold := decimal.NewFromInt(3000)

	p, err := FromConfig("", fee, threshold)
	require.NoError(t, err)
	assert.IsType(t, FreeShipping{}, p)

	p, err = FromConfig(PolicyFlat, fee, threshold)
	require.NoError(t, err)
	assert.Equal(t, FlatRate{Fee: fee}, p)

	p, err = FromConfig(PolicyFreeAbove, fee, threshold)
	require.NoError(t, err)
	assert.Equal(t, FreeAbove{Threshold: threshold, Fee: fee}, p)

	_, err = FromConfig("express", fee, threshold)
	require.Error(t, err)
}
