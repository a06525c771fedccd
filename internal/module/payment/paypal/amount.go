package paypal

import "github.com/shopspring/decimal"

// ValidateAmount reports whether a provider-reported amount matches the
// expected order total. The expected value is the stored total converted
// by the currency rate; both sides round to two decimals independently
// and must match to the exact cent. A mismatch is a routine adverse
// outcome (partial payment, provider fee, fraud) recorded by the caller,
// never an error.
func ValidateAmount(reported, orderTotal, currencyRate decimal.Decimal) bool {
	expected := orderTotal.Mul(currencyRate).Round(2)
	return reported.Round(2).Equal(expected)
}
