package paypal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name     string
		reported string
		total    string
		rate     string
		want     bool
	}{
		{"exact match", "10.00", "10.00", "1.0", true},
		{"cent short", "9.98", "10.00", "1.0", false},
		{"cent over", "10.01", "10.00", "1.0", false},
		{"currency rate applied", "8.50", "10.00", "0.85", true},
		{"currency rate mismatch", "10.00", "10.00", "0.85", false},
		// 10.005 rounds half-up to 10.01, which is not 10.00.
		{"half-cent boundary", "10.005", "10.00", "1.0", false},
		{"half-cent boundary matches rounded value", "10.005", "10.01", "1.0", true},
		{"trailing zeros", "10", "10.00", "1.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateAmount(dec(tt.reported), dec(tt.total), dec(tt.rate))
			assert.Equal(t, tt.want, got)
		})
	}
}
